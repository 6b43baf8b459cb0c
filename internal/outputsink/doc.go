// Package outputsink receives categorized, timestamped output lines for
// display.
//
// Every component that produces operator-visible output (process runners,
// local stages, the stall watchdog, the workflow controller) writes to a Sink
// handed to it at construction time; nothing looks a sink up globally. The
// Console sink renders to a terminal with lipgloss colors and a live status
// line, and the Memory sink records lines for tests and for copying a session
// transcript.
package outputsink
