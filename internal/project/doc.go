// Package project loads the per-project release settings and reads and
// writes the project's version files.
//
// Settings live in shipit.yaml at the project root. Load reports a missing
// file as ErrNotProject and any unreadable or invalid content as
// ErrInvalidSettings, so callers decide with errors.Is instead of catching
// failures far from where they happened.
package project
