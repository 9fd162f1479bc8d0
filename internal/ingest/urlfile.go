// Package ingest parses operator-supplied URL submission files.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
)

// Entry is one submission from a URL file.
type Entry struct {
	URL      string
	Priority jobs.Priority
	Line     int
}

// ParseURLFile reads a submission file: one URL per line, blank lines and
// `#` comments skipped, an optional trailing "urgent" token marking the job
// urgent.
func ParseURLFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads submissions from a reader. Malformed lines (more than two
// fields, or an unknown second token) are rejected with their line number.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		text = stripInlineComment(text)

		fields := strings.Fields(text)
		entry := Entry{URL: fields[0], Priority: jobs.PriorityNormal, Line: line}
		switch {
		case len(fields) == 1:
		case len(fields) == 2 && strings.EqualFold(fields[1], string(jobs.PriorityUrgent)):
			entry.Priority = jobs.PriorityUrgent
		default:
			return nil, fmt.Errorf("line %d: expected \"<url> [urgent]\", got %q", line, text)
		}
		if !strings.Contains(entry.URL, "://") {
			return nil, fmt.Errorf("line %d: %q is not a URL", line, entry.URL)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return entries, nil
}

// stripInlineComment drops a trailing comment only when the `#` follows
// whitespace; a bare `#` may be a URL fragment and stays part of the URL.
func stripInlineComment(text string) string {
	for i, r := range text {
		if r != '#' || i == 0 {
			continue
		}
		if prev := text[i-1]; prev == ' ' || prev == '\t' {
			return strings.TrimSpace(text[:i])
		}
	}
	return text
}
