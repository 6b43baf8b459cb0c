// Package config loads, normalizes, and validates shipit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHIPIT_NTFY_TOPIC. The Config type centralizes the knobs the CLI and the
// workflow controller need: where logs and the run journal live, which
// binaries implement git, directory sync, and builds, and how the stall
// watchdog and process shutdown are timed.
//
// Per-project build settings (targets, files to stage, post-processing) are
// not part of this package; see internal/project.
package config
