package outputsink

import (
	"strings"
	"sync"
	"time"
)

// Line is one recorded output entry.
type Line struct {
	Time        time.Time
	Prefix      string
	Text        string
	PrefixColor Color
	LineColor   Color
}

// Memory records lines in arrival order.
type Memory struct {
	mu          sync.Mutex
	lines       []Line
	clears      int
	status      string
	statusColor Color
	statuses    []string
	now         func() time.Time
}

// NewMemory returns an empty recording sink.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) AddLine(prefix, line string, prefixColor, lineColor Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.lines = append(m.lines, Line{
		Time:        now(),
		Prefix:      prefix,
		Text:        line,
		PrefixColor: prefixColor,
		LineColor:   lineColor,
	})
}

func (m *Memory) ClearLines() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	m.clears++
}

func (m *Memory) SetStatus(text string, color Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = text
	m.statusColor = color
	m.statuses = append(m.statuses, text)
}

// Lines returns a snapshot of the recorded lines.
func (m *Memory) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}

// Texts returns the recorded line texts.
func (m *Memory) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		out = append(out, l.Text)
	}
	return out
}

// Contains reports whether any recorded line text contains substr.
func (m *Memory) Contains(substr string) bool {
	return m.Count(substr) > 0
}

// Count returns how many recorded line texts contain substr.
func (m *Memory) Count(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lines {
		if strings.Contains(l.Text, substr) {
			n++
		}
	}
	return n
}

// Status returns the current status text.
func (m *Memory) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Statuses returns every status text set so far.
func (m *Memory) Statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.statuses))
	copy(out, m.statuses)
	return out
}

// Clears returns how many times ClearLines was called.
func (m *Memory) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Transcript renders the recorded lines as plain text.
func (m *Memory) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	for _, l := range m.lines {
		b.WriteString(formatPlain(l.Time, l.Prefix, l.Text))
		b.WriteByte('\n')
	}
	return b.String()
}
