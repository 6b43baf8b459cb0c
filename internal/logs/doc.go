// Package logs reads shipit.log for the `shipit logs` command.
//
// Tail returns the last lines of the file or everything after a byte
// offset, optionally keeping only lines that mention a run ID. Follow polls
// for appended lines until its context is cancelled.
package logs
