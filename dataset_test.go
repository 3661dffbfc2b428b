package tablesql

import (
	"errors"
	"testing"
)

func TestNewDataset(t *testing.T) {
	t.Parallel()

	t.Run("Create dataset with header and records", func(t *testing.T) {
		t.Parallel()

		header := NewHeader([]string{"id", "name"})
		records := []Record{
			NewRecord([]string{"1", "alice"}),
			NewRecord([]string{"2", "bob"}),
		}

		dataset := NewDataset("users", header, records)

		if dataset.Name() != "users" {
			t.Errorf("expected name 'users', got %s", dataset.Name())
		}
		if !dataset.Header().Equal(header) {
			t.Errorf("expected header %v, got %v", header, dataset.Header())
		}
		if dataset.RowCount() != 2 {
			t.Errorf("expected 2 rows, got %d", dataset.RowCount())
		}
	})

	t.Run("Infers column types", func(t *testing.T) {
		t.Parallel()

		dataset := NewDataset("t", NewHeader([]string{"id", "score", "name"}), []Record{
			NewRecord([]string{"1", "1.5", "alice"}),
			NewRecord([]string{"2", "2.5", "bob"}),
		})

		columns := dataset.Columns()
		if columns[0].Type != ColumnTypeInteger {
			t.Errorf("expected integer column, got %v", columns[0].Type)
		}
		if columns[1].Type != ColumnTypeReal {
			t.Errorf("expected real column, got %v", columns[1].Type)
		}
		if columns[2].Type != ColumnTypeText {
			t.Errorf("expected text column, got %v", columns[2].Type)
		}
	})
}

func TestDataset_Equal(t *testing.T) {
	t.Parallel()

	header := NewHeader([]string{"col1", "col2"})
	records := []Record{
		NewRecord([]string{"val1", "val2"}),
	}

	d1 := NewDataset("test", header, records)
	d2 := NewDataset("test", header, records)
	d3 := NewDataset("different", header, records)

	if !d1.Equal(d2) {
		t.Error("expected datasets to be equal")
	}
	if d1.Equal(d3) {
		t.Error("expected datasets with different names to be not equal")
	}

	d4 := NewDataset("test", header, []Record{NewRecord([]string{"x", "y"})})
	if d1.Equal(d4) {
		t.Error("expected datasets with different records to be not equal")
	}
}

func TestValidateColumnNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []string
		wantErr bool
	}{
		{name: "unique columns", columns: []string{"a", "b", "c"}, wantErr: false},
		{name: "duplicate columns", columns: []string{"a", "b", "a"}, wantErr: true},
		{name: "duplicate after trim", columns: []string{"a", " a"}, wantErr: true},
		{name: "case sensitive", columns: []string{"a", "A"}, wantErr: false},
		{name: "empty list", columns: nil, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateColumnNames(tt.columns)
			if tt.wantErr && !errors.Is(err, ErrDuplicateColumnName) {
				t.Errorf("expected ErrDuplicateColumnName, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeTableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain name", input: "users", expected: "users"},
		{name: "spaces become underscores", input: "my table", expected: "my_table"},
		{name: "dashes become underscores", input: "my-table", expected: "my_table"},
		{name: "dots become underscores", input: "my.table", expected: "my_table"},
		{name: "special chars dropped", input: "tab!le@2024", expected: "table2024"},
		{name: "leading digit prefixed", input: "2024data", expected: "table_2024data"},
		{name: "empty becomes table", input: "", expected: "table"},
		{name: "only special chars", input: "!@#", expected: "table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SanitizeTableName(tt.input); got != tt.expected {
				t.Errorf("SanitizeTableName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTableNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "plain csv", path: "/data/users.csv", expected: "users"},
		{name: "compressed csv", path: "/data/users.csv.gz", expected: "users"},
		{name: "zstd parquet", path: "orders.parquet.zst", expected: "orders"},
		{name: "snapshot", path: "/tmp/events.json.zst", expected: "events"},
		{name: "dashed name", path: "daily-report.tsv", expected: "daily_report"},
		{name: "markdown", path: "notes.md", expected: "notes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := TableNameFromPath(tt.path); got != tt.expected {
				t.Errorf("TableNameFromPath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	if got := quoteIdent("users"); got != `"users"` {
		t.Errorf("expected quoted identifier, got %s", got)
	}
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("expected embedded quote doubled, got %s", got)
	}
}

func TestQuotePath(t *testing.T) {
	t.Parallel()

	if got := quotePath("/tmp/a.csv"); got != "'/tmp/a.csv'" {
		t.Errorf("expected quoted path, got %s", got)
	}
	if got := quotePath("/tmp/o'brien.csv"); got != "'/tmp/o''brien.csv'" {
		t.Errorf("expected embedded quote doubled, got %s", got)
	}
}
