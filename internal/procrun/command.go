package procrun

import (
	"strings"

	"shipit/internal/exitcode"
)

// Command describes one external tool invocation. Commands are values and
// are never mutated after construction.
type Command struct {
	Kind       exitcode.Kind
	Prefix     string
	Executable string
	Args       []string
	Dir        string
	Env        map[string]string
}

// String renders the command the way an operator would type it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Executable))
	for _, arg := range c.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

// WithArgs returns a copy of c with extra arguments appended.
func (c Command) WithArgs(extra ...string) Command {
	args := make([]string, 0, len(c.Args)+len(extra))
	args = append(args, c.Args...)
	args = append(args, extra...)
	c.Args = args
	return c
}

// DisplayPrefix is the prefix used for emitted lines.
func (c Command) DisplayPrefix() string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return c.Executable
}

func quoteArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, " \t\"'") {
		return arg
	}
	return `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
}

// LineFilter may drop (keep=false) or rewrite an output line before display.
type LineFilter func(line string) (out string, keep bool)

// SyncLineFilter drops directory-sync progress lines that start with the
// 0xFF control byte and turns tabs into spaces.
func SyncLineFilter(line string) (string, bool) {
	if len(line) > 0 && line[0] == 0xFF {
		return "", false
	}
	return strings.ReplaceAll(line, "\t", " "), true
}
