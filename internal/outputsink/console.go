package outputsink

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"shipit/internal/logging"
)

// Color modes accepted by NewConsole.
const (
	ColorModeAuto   = "auto"
	ColorModeAlways = "always"
	ColorModeNever  = "never"
)

const (
	prefixWidth     = 10
	timestampLayout = "15:04:05"
	clearLine       = "\r\x1b[2K"
	clearScreen     = "\x1b[H\x1b[2J"
)

// ConsoleOptions configures a console sink.
type ConsoleOptions struct {
	ColorMode string
	Logger    *slog.Logger
	Now       func() time.Time
}

// Console renders lines to a writer. When the writer is a terminal it keeps a
// live status line under the output and redraws it after every line.
type Console struct {
	mu          sync.Mutex
	out         io.Writer
	renderer    *lipgloss.Renderer
	colorize    bool
	interactive bool
	status      string
	statusColor Color
	logger      *slog.Logger
	now         func() time.Time
}

// NewConsole builds a console sink writing to out.
func NewConsole(out io.Writer, opts ConsoleOptions) *Console {
	if out == nil {
		out = os.Stdout
	}
	interactive := isTerminal(out)
	renderer := lipgloss.NewRenderer(out)
	colorize := interactive
	switch strings.ToLower(strings.TrimSpace(opts.ColorMode)) {
	case ColorModeAlways:
		renderer.SetColorProfile(termenv.ANSI256)
		colorize = true
	case ColorModeNever:
		colorize = false
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Console{
		out:         out,
		renderer:    renderer,
		colorize:    colorize,
		interactive: interactive,
		logger:      logger.With(logging.String(logging.FieldComponent, "output")),
		now:         now,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Console) AddLine(prefix, line string, prefixColor, lineColor Color) {
	ts := c.now()
	c.logger.Debug("output line",
		logging.String("prefix", prefix),
		logging.String("line", line),
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interactive && c.status != "" {
		fmt.Fprint(c.out, clearLine)
	}
	stamp := c.paint(ColorGray, false, ts.Format(timestampLayout))
	head := c.paint(prefixColor, false, fmt.Sprintf("%-*s", prefixWidth, truncatePrefix(prefix)))
	body := c.paint(lineColor, false, line)
	fmt.Fprintf(c.out, "%s %s %s\n", stamp, head, body)
	c.drawStatusLocked()
}

func (c *Console) ClearLines() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interactive {
		fmt.Fprint(c.out, clearScreen)
		c.drawStatusLocked()
		return
	}
	fmt.Fprintln(c.out)
}

func (c *Console) SetStatus(text string, color Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = text
	c.statusColor = color
	if !c.interactive {
		return
	}
	fmt.Fprint(c.out, clearLine)
	c.drawStatusLocked()
}

// FinishStatus drops the live status line, leaving its last text in the
// scrollback.
func (c *Console) FinishStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interactive && c.status != "" {
		fmt.Fprintln(c.out)
	}
	c.status = ""
}

func (c *Console) drawStatusLocked() {
	if !c.interactive || c.status == "" {
		return
	}
	fmt.Fprint(c.out, c.paint(c.statusColor, true, c.status))
}

func (c *Console) paint(color Color, bold bool, text string) string {
	if !c.colorize || (color == ColorDefault && !bold) {
		return text
	}
	style := c.renderer.NewStyle().Bold(bold)
	if color != ColorDefault {
		style = style.Foreground(lipgloss.Color(string(color)))
	}
	return style.Render(text)
}

func truncatePrefix(prefix string) string {
	runes := []rune(prefix)
	if len(runes) <= prefixWidth {
		return prefix
	}
	return string(runes[:prefixWidth])
}

func formatPlain(ts time.Time, prefix, line string) string {
	return fmt.Sprintf("%s %-*s %s", ts.Format(timestampLayout), prefixWidth, truncatePrefix(prefix), line)
}
