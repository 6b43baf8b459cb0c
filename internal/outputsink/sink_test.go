package outputsink

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestConsoleWritesTimestampedPlainLines(t *testing.T) {
	var buf bytes.Buffer
	fixed := time.Date(2026, 3, 4, 9, 8, 7, 0, time.UTC)
	sink := NewConsole(&buf, ConsoleOptions{ColorMode: ColorModeAuto, Now: func() time.Time { return fixed }})

	sink.AddLine("git", "Already up to date.", ColorGray, ColorDefault)
	sink.SetStatus("Pull 00:03", ColorYellow)

	got := buf.String()
	want := "09:08:07 git        Already up to date.\n"
	if got != want {
		t.Fatalf("unexpected output\n got: %q\nwant: %q", got, want)
	}
}

func TestConsoleTruncatesLongPrefix(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, ConsoleOptions{ColorMode: ColorModeNever})
	sink.AddLine("averyveryverylongprefix", "x", ColorDefault, ColorDefault)
	if !strings.Contains(buf.String(), " averyveryv x") {
		t.Fatalf("expected truncated prefix, got %q", buf.String())
	}
}

func TestConsoleTruncatesPrefixOnRuneBoundary(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, ConsoleOptions{ColorMode: ColorModeNever})
	sink.AddLine("übersetzungen", "x", ColorDefault, ColorDefault)
	got := buf.String()
	if !utf8.ValidString(got) {
		t.Fatalf("prefix split a rune: %q", got)
	}
	if !strings.Contains(got, " übersetzun x") {
		t.Fatalf("expected ten-rune prefix, got %q", got)
	}
}

func TestHelpersFormatLines(t *testing.T) {
	mem := NewMemory()
	Error(mem, "build", "exit code 2")
	ExitCode(mem, "git", true, 0)
	ExitCode(mem, "robocopy", false, 8)
	Info(nil, "x", "ignored")

	lines := mem.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Prefix != "ERROR" || lines[0].Text != "build: exit code 2" || lines[0].LineColor != ColorRed {
		t.Fatalf("unexpected error line: %+v", lines[0])
	}
	if lines[1].Text != "exited successfully" {
		t.Fatalf("unexpected success line: %+v", lines[1])
	}
	if lines[2].Text != "execution failed (8)" || lines[2].PrefixColor != ColorRed {
		t.Fatalf("unexpected failure line: %+v", lines[2])
	}
}

func TestMemoryClearAndStatus(t *testing.T) {
	mem := NewMemory()
	mem.AddLine("a", "one", ColorDefault, ColorDefault)
	mem.ClearLines()
	mem.AddLine("a", "two", ColorDefault, ColorDefault)
	SetStatus(mem, "Build 00:01", ColorYellow)
	SetStatus(Discard, "ignored", ColorYellow)

	if got := mem.Texts(); len(got) != 1 || got[0] != "two" {
		t.Fatalf("unexpected texts: %v", got)
	}
	if mem.Clears() != 1 {
		t.Fatalf("expected one clear, got %d", mem.Clears())
	}
	if mem.Status() != "Build 00:01" {
		t.Fatalf("unexpected status %q", mem.Status())
	}
	if !strings.Contains(mem.Transcript(), "two") {
		t.Fatalf("transcript missing line: %q", mem.Transcript())
	}
}
