package tablesql

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Header is the ordered list of column names of a dataset.
type Header []string

// NewHeader creates a new Header.
func NewHeader(h []string) Header {
	return Header(h)
}

// Equal compares two headers.
func (h Header) Equal(h2 Header) bool {
	if len(h) != len(h2) {
		return false
	}
	for i, v := range h {
		if v != h2[i] {
			return false
		}
	}
	return true
}

// Record is one row of a dataset as a slice of string fields.
type Record []string

// NewRecord creates a new Record.
func NewRecord(r []string) Record {
	return Record(r)
}

// Equal compares two records.
func (r Record) Equal(r2 Record) bool {
	if len(r) != len(r2) {
		return false
	}
	for i, v := range r {
		if v != r2[i] {
			return false
		}
	}
	return true
}

// ColumnType is the inferred SQL type of a dataset column.
type ColumnType int

const (
	// ColumnTypeText represents free-form text
	ColumnTypeText ColumnType = iota
	// ColumnTypeInteger represents 64-bit integers
	ColumnTypeInteger
	// ColumnTypeReal represents floating point numbers
	ColumnTypeReal
	// ColumnTypeBoolean represents true/false values
	ColumnTypeBoolean
	// ColumnTypeDatetime represents date or time values kept as text
	ColumnTypeDatetime
)

// SQL type names used in generated DDL. Boolean, datetime, and text columns
// all map to VARCHAR so that mixed or partially-parseable values never fail
// a load; numeric columns get native types for correct ordering and math.
const (
	sqlTypeVarchar = "VARCHAR"
	sqlTypeBigint  = "BIGINT"
	sqlTypeDouble  = "DOUBLE"
)

// String returns the engine type name for the column type.
func (ct ColumnType) String() string {
	switch ct {
	case ColumnTypeInteger:
		return sqlTypeBigint
	case ColumnTypeReal:
		return sqlTypeDouble
	case ColumnTypeText, ColumnTypeBoolean, ColumnTypeDatetime:
		return sqlTypeVarchar
	default:
		return sqlTypeVarchar
	}
}

// ColumnInfo pairs a column name with its inferred type.
type ColumnInfo struct {
	Name string
	Type ColumnType
}

// Dataset is the generic tabular value accepted at the Store boundary: an
// ordered header, ordered rows of string cells, and per-column inferred
// types. File parsers produce Datasets; the Store never parses files itself.
type Dataset struct {
	name    string
	header  Header
	records []Record
	columns []ColumnInfo
}

// NewDataset creates a Dataset and infers column types from the records.
func NewDataset(name string, header Header, records []Record) *Dataset {
	return &Dataset{
		name:    name,
		header:  header,
		records: records,
		columns: inferColumns(header, records),
	}
}

// NewDatasetWithColumns creates a Dataset with pre-computed column types,
// used when the source carries schema information (Parquet, JSON snapshots).
func NewDatasetWithColumns(name string, columns []ColumnInfo, records []Record) *Dataset {
	header := make(Header, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	return &Dataset{
		name:    name,
		header:  header,
		records: records,
		columns: columns,
	}
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Header returns the dataset header.
func (d *Dataset) Header() Header { return d.header }

// Records returns the dataset rows.
func (d *Dataset) Records() []Record { return d.records }

// Columns returns the column information with inferred types.
func (d *Dataset) Columns() []ColumnInfo { return d.columns }

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int { return len(d.records) }

// Equal compares two datasets by name, header, and row values.
func (d *Dataset) Equal(d2 *Dataset) bool {
	if d.name != d2.name {
		return false
	}
	if !d.header.Equal(d2.header) {
		return false
	}
	if len(d.records) != len(d2.records) {
		return false
	}
	for i, rec := range d.records {
		if !rec.Equal(d2.records[i]) {
			return false
		}
	}
	return true
}

// validateColumnNames checks for duplicate column names and returns an error
// if found. Comparison trims whitespace but is case-sensitive.
func validateColumnNames(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		trimmed := strings.TrimSpace(col)
		if seen[trimmed] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumnName, col)
		}
		seen[trimmed] = true
	}
	return nil
}

// SanitizeTableName turns a user-chosen name into a safe SQL identifier:
// spaces and punctuation become underscores, anything outside [A-Za-z0-9_]
// is dropped, and a leading digit gets a prefix.
func SanitizeTableName(name string) string {
	result := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	result = strings.ReplaceAll(result, "-", "_")
	result = strings.ReplaceAll(result, ".", "_")

	var sanitized strings.Builder
	for _, r := range result {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sanitized.WriteRune(r)
		}
	}

	out := sanitized.String()
	if len(out) > 0 && out[0] >= '0' && out[0] <= '9' {
		out = "table_" + out
	}
	if out == "" {
		out = "table"
	}
	return out
}

// quoteIdent double-quotes an identifier for use in generated SQL, doubling
// any embedded quotes. Generated statements never concatenate raw names.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quotePath single-quotes a file path for use inside an engine function call
// such as read_csv_auto or read_parquet.
func quotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}

// TableNameFromPath derives a table name from a file path: the base name
// with compression extensions stripped first, then the format extension.
func TableNameFromPath(path string) string {
	fileName := filepath.Base(path)
	for _, ext := range []string{extGZ, extBZ2, extXZ, extZSTD} {
		if strings.HasSuffix(fileName, ext) {
			fileName = strings.TrimSuffix(fileName, ext)
			break
		}
	}
	return SanitizeTableName(strings.TrimSuffix(fileName, filepath.Ext(fileName)))
}
