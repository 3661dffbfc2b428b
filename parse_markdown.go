package tablesql

import (
	"bufio"
	"fmt"
	"strings"
)

// parseMarkdown parses the first pipe table found in a Markdown file. Text
// outside the table is ignored. The row under the header must be the
// delimiter row (dashes with optional alignment colons); every following
// pipe row becomes a record until the first non-table line.
func (f *file) parseMarkdown() (*Dataset, error) {
	reader, closer, err := f.openReader()
	if err != nil {
		return nil, err
	}
	defer closer() //nolint:errcheck // Read errors surface below

	var (
		header  Header
		records []Record
		inTable bool
	)

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if !inTable {
			if !isPipeRow(line) {
				continue
			}
			cells := splitPipeRow(line)
			if err := validateColumnNames(cells); err != nil {
				return nil, err
			}
			header = cells
			inTable = true
			continue
		}

		if header != nil && records == nil && isDelimiterRow(line) {
			records = make([]Record, 0)
			continue
		}
		if records == nil {
			// The row after a candidate header was not a delimiter row, so
			// the candidate was plain text with pipes. Start over.
			header = nil
			inTable = isPipeRow(line)
			if inTable {
				header = splitPipeRow(line)
			}
			continue
		}
		if !isPipeRow(line) {
			break
		}
		records = append(records, padRecord(splitPipeRow(line), len(header)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if header == nil || records == nil {
		return nil, fmt.Errorf("no table found in markdown file: %s", f.path)
	}

	return NewDataset(TableNameFromPath(f.path), header, records), nil
}

func isPipeRow(line string) bool {
	return strings.HasPrefix(line, "|") && strings.Count(line, "|") >= 2
}

// isDelimiterRow reports whether the line is the header separator of a pipe
// table: cells made only of dashes and alignment colons.
func isDelimiterRow(line string) bool {
	if !isPipeRow(line) {
		return false
	}
	for _, cell := range splitPipeRow(line) {
		if cell == "" {
			return false
		}
		for _, r := range cell {
			if r != '-' && r != ':' {
				return false
			}
		}
		if !strings.Contains(cell, "-") {
			return false
		}
	}
	return true
}

// splitPipeRow splits a table row into trimmed cells, dropping the leading
// and trailing empty cells produced by the outer pipes. Escaped pipes (\|)
// inside a cell are unescaped.
func splitPipeRow(line string) []string {
	line = strings.Trim(line, "|")
	var (
		cells   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			if r != '|' {
				current.WriteByte('\\')
			}
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		current.WriteByte('\\')
	}
	cells = append(cells, strings.TrimSpace(current.String()))
	return cells
}
