// Package procrun spawns external tools and streams their output.
//
// A Runner starts one executable per call, forwards each stdout and stderr
// line (through an optional LineFilter) to the caller and to the output sink,
// and resolves asynchronously with an Exit. Start failures are reported on the
// Exit rather than returned, so callers always receive exactly one result.
//
// Children run in their own process group. Cancelling the context passed to
// Execute terminates the whole group: SIGTERM first, SIGKILL once the grace
// period expires.
package procrun
