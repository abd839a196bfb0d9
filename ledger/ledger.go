// Package ledger persists the append-only record of published posts used to
// steer future generations away from already-covered topics.
//
// The file format is one record per line: "summary::url".
package ledger

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const separator = "::"

// Entry pairs a published post's summary with its public URL.
type Entry struct {
	Summary string
	URL     string
}

// Load reads every well-formed entry from path, in file order. Malformed
// lines are skipped with a warning. A missing file is first-run behavior and
// yields an empty list.
func Load(path string, logger *slog.Logger) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("ledger file not found, starting fresh", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		summary, url, found := strings.Cut(line, separator)
		if !found {
			logger.Warn("skipping malformed ledger line", "path", path, "line", lineNum)
			continue
		}
		entries = append(entries, Entry{
			Summary: strings.TrimSpace(summary),
			URL:     strings.TrimSpace(url),
		})
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read ledger %s: %w", path, err)
	}

	logger.Info("loaded previous post summaries", "path", path, "count", len(entries))
	return entries, nil
}

// Append writes one entry to the end of the ledger. An entry with an empty
// summary or URL is never written; it is dropped with a warning instead.
func Append(path string, entry Entry, logger *slog.Logger) error {
	if entry.Summary == "" || entry.URL == "" {
		logger.Warn("refusing to append half-populated ledger entry", "path", path)
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger %s for append: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s%s%s\n", entry.Summary, separator, entry.URL); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}
