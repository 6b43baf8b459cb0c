package outputsink

import "fmt"

// Color names a display color. The zero value means "terminal default".
type Color string

// Palette shared by all producers. Values are ANSI 256 color indexes.
const (
	ColorDefault Color = ""
	ColorGray    Color = "8"
	ColorRed     Color = "9"
	ColorGreen   Color = "10"
	ColorYellow  Color = "11"
	ColorBlue    Color = "12"
	ColorMagenta Color = "13"
	ColorCyan    Color = "14"
	ColorWhite   Color = "15"
)

// Sink is the append-only display collaborator. Implementations must be safe
// for concurrent use and must not block callers beyond a bounded write.
type Sink interface {
	AddLine(prefix, line string, prefixColor, lineColor Color)
	ClearLines()
}

// StatusSetter is implemented by sinks that can show a single live status
// text (the elapsed-time display of the stall watchdog).
type StatusSetter interface {
	SetStatus(text string, color Color)
}

// Discard drops every line.
var Discard Sink = discard{}

type discard struct{}

func (discard) AddLine(string, string, Color, Color) {}
func (discard) ClearLines()                          {}

// Info writes a neutral informational line.
func Info(s Sink, prefix, line string) {
	if s == nil {
		return
	}
	s.AddLine(prefix, line, ColorGray, ColorDefault)
}

// Notice writes a highlighted line, used for stage transitions.
func Notice(s Sink, prefix, line string) {
	if s == nil {
		return
	}
	s.AddLine(prefix, line, ColorCyan, ColorWhite)
}

// Success writes a green line.
func Success(s Sink, prefix, line string) {
	if s == nil {
		return
	}
	s.AddLine(prefix, line, ColorGreen, ColorGreen)
}

// Error writes a red line under the ERROR prefix. The stage name is folded
// into the line so the operator can see where the failure happened.
func Error(s Sink, stage, message string) {
	if s == nil {
		return
	}
	line := message
	if stage != "" {
		line = fmt.Sprintf("%s: %s", stage, message)
	}
	s.AddLine("ERROR", line, ColorRed, ColorRed)
}

// ExitCode reports the outcome of a finished command.
func ExitCode(s Sink, prefix string, success bool, code int) {
	if s == nil {
		return
	}
	if success {
		s.AddLine(prefix, "exited successfully", ColorGray, ColorGreen)
		return
	}
	s.AddLine(prefix, fmt.Sprintf("execution failed (%d)", code), ColorRed, ColorRed)
}

// SetStatus forwards to s when it supports a status line.
func SetStatus(s Sink, text string, color Color) {
	if setter, ok := s.(StatusSetter); ok {
		setter.SetStatus(text, color)
	}
}
