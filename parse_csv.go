package tablesql

import (
	"encoding/csv"
	"fmt"
)

const (
	csvDelimiter = ','
	tsvDelimiter = '\t'
)

// parseCSV parses a CSV file, decompressing if needed.
func (f *file) parseCSV() (*Dataset, error) {
	return f.parseDelimited(csvDelimiter)
}

// parseTSV parses a TSV file, decompressing if needed.
func (f *file) parseTSV() (*Dataset, error) {
	return f.parseDelimited(tsvDelimiter)
}

// parseDelimited parses a delimiter-separated file. The first row is the
// header; short rows are padded with empty cells so every record matches the
// header width.
func (f *file) parseDelimited(delimiter rune) (*Dataset, error) {
	reader, closer, err := f.openReader()
	if err != nil {
		return nil, err
	}
	defer closer() //nolint:errcheck // Read errors surface below

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file: %s", f.path)
	}

	header := Header(rows[0])
	if err := validateColumnNames(header); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, padRecord(row, len(header)))
	}
	return NewDataset(TableNameFromPath(f.path), header, records), nil
}

// padRecord pads or truncates a row to exactly width cells.
func padRecord(row []string, width int) Record {
	record := make(Record, width)
	copy(record, row)
	return record
}
