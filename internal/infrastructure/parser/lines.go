package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"NotebookSync/internal/importer"
)

// maxLineSize bounds a single line of an import file.
const maxLineSize = 1 << 20

// splitFunc turns one trimmed, non-empty line into an entry.
type splitFunc func(line string) (importer.Entry, error)

// scanLines applies split to every meaningful line of r. Empty lines and
// diagnostic lines from the downloader (WARNING, ERROR) are ignored.
func scanLines(ctx context.Context, r io.Reader, split splitFunc) ([]importer.Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var entries []importer.Entry
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw := sc.Text()
		if strings.HasPrefix(raw, "WARNING") || strings.HasPrefix(raw, "ERROR") {
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		entry, err := split(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return entries, nil
}
