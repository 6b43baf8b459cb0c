// Package history maintains the WebGL build history published next to a
// web build: a JSON list of builds, newest first, that the hosting page
// renders as a table of contents.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EntryVersion is the schema tag written into every new entry.
const EntryVersion = "2"

// Entry is one published build.
type Entry struct {
	Ver   string `json:"Ver"`
	Track string `json:"Track"`
	Date  string `json:"Date"`
	Label string `json:"Label"`
	HRef  string `json:"HRef"`
	Notes string `json:"Notes"`
}

// Log is the on-disk document.
type Log struct {
	List []Entry `json:"List"`
}

// NewEntry builds an entry stamped with date.
func NewEntry(track string, date time.Time, label, href, notes string) Entry {
	return Entry{
		Ver:   EntryVersion,
		Track: track,
		Date:  date.Format("2006-01-02 15:04"),
		Label: label,
		HRef:  href,
		Notes: notes,
	}
}

// Load reads the log at path. A missing file is an empty log.
func Load(path string) (Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Log{List: []Entry{}}, nil
		}
		return Log{}, err
	}
	var log Log
	if len(bytes.TrimSpace(data)) == 0 {
		return Log{List: []Entry{}}, nil
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return Log{}, fmt.Errorf("decode build history %s: %w", path, err)
	}
	if log.List == nil {
		log.List = []Entry{}
	}
	return log, nil
}

// Prepend inserts entry at the front of the log at path and saves it,
// creating the directory when needed. It returns the new entry count and
// whether the directory had to be created.
func Prepend(path string, entry Entry) (int, bool, error) {
	log, err := Load(path)
	if err != nil {
		return 0, false, err
	}
	log.List = append([]Entry{entry}, log.List...)

	created := false
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, false, fmt.Errorf("create history directory: %w", err)
		}
		created = true
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return 0, created, err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return 0, created, err
	}
	return len(log.List), created, nil
}

// ReleaseNotes returns the first paragraph of the release notes file, or a
// generated line when the file is missing or starts with a blank line.
func ReleaseNotes(path, product, version string, today time.Time) string {
	fallback := fmt.Sprintf("%s %s built on %s", product, version, today.Format("2006-01-02"))
	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return fallback
	}
	return strings.Join(lines, "\r\n")
}

// TouchHTML appends a timestamp comment to the hosting page so caches and
// mirrors see it as changed. It reports false when the page does not exist.
func TouchHTML(path string, now time.Time) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, info.Mode().Perm())
	if err != nil {
		return false, err
	}
	if _, err := fmt.Fprintf(f, "\n<!-- %s -->", now.Format("2006-01-02 15:04:05")); err != nil {
		_ = f.Close()
		return false, err
	}
	return true, f.Close()
}
