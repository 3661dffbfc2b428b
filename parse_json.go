package tablesql

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// parseJSON parses a JSON file holding tabular data in one of two shapes:
// an array of objects (one object per row) or an object of equally long
// arrays (one array per column). Keys become column names in sorted order;
// cells missing from a row become empty strings.
func (f *file) parseJSON() (*Dataset, error) {
	reader, closer, err := f.openReader()
	if err != nil {
		return nil, err
	}
	defer closer() //nolint:errcheck // Read errors surface below

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	name := TableNameFromPath(f.path)

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err == nil {
		return datasetFromObjectRows(name, rows)
	}

	var columns map[string][]any
	if err := json.Unmarshal(data, &columns); err == nil {
		return datasetFromColumnArrays(name, columns)
	}

	return nil, fmt.Errorf("unsupported JSON shape in %s: want array of objects or object of arrays", f.path)
}

func datasetFromObjectRows(name string, rows []map[string]any) (*Dataset, error) {
	keySet := make(map[string]struct{})
	for _, row := range rows {
		for key := range row {
			keySet[key] = struct{}{}
		}
	}
	if len(keySet) == 0 {
		return nil, fmt.Errorf("no columns found in JSON table %s", name)
	}

	header := make(Header, 0, len(keySet))
	for key := range keySet {
		header = append(header, key)
	}
	sort.Strings(header)
	if err := validateColumnNames(header); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record := make(Record, len(header))
		for i, key := range header {
			if value, ok := row[key]; ok {
				record[i] = jsonCellString(value)
			}
		}
		records = append(records, record)
	}
	return NewDataset(name, header, records), nil
}

func datasetFromColumnArrays(name string, columns map[string][]any) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns found in JSON table %s", name)
	}

	header := make(Header, 0, len(columns))
	for key := range columns {
		header = append(header, key)
	}
	sort.Strings(header)
	if err := validateColumnNames(header); err != nil {
		return nil, err
	}

	rowCount := len(columns[header[0]])
	for _, key := range header {
		if len(columns[key]) != rowCount {
			return nil, fmt.Errorf("JSON column %q has %d values, want %d", key, len(columns[key]), rowCount)
		}
	}

	records := make([]Record, rowCount)
	for i := range records {
		record := make(Record, len(header))
		for j, key := range header {
			record[j] = jsonCellString(columns[key][i])
		}
		records[i] = record
	}
	return NewDataset(name, header, records), nil
}

// jsonCellString renders a decoded JSON value as a dataset cell. Nested
// arrays and objects are re-encoded as compact JSON text.
func jsonCellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
