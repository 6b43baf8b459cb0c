// Package main hosts the shipit CLI entrypoint and command graph.
//
// Every workflow is exposed as its own subcommand that loads the project
// folder, runs the workflow to completion, and exits non-zero on failure.
// The shell subcommand keeps one controller alive and starts workflows
// without waiting, so the operator can watch a build while issuing further
// commands. history and doctor read the run journal and probe the toolchain.
//
// Keep this package lean: orchestration lives in internal/workflow and the
// commands here only resolve configuration and render results.
package main
