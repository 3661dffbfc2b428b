package tablesql

import (
	"errors"
	"testing"
	"time"
)

func TestApplyDefaultLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "unbounded select gets cap",
			query:    "SELECT * FROM users",
			expected: "SELECT * FROM users LIMIT 3000",
		},
		{
			name:     "lowercase select gets cap",
			query:    "select id from users",
			expected: "select id from users LIMIT 3000",
		},
		{
			name:     "trailing semicolon stripped before cap",
			query:    "SELECT * FROM users;",
			expected: "SELECT * FROM users LIMIT 3000",
		},
		{
			name:     "explicit limit untouched",
			query:    "SELECT * FROM users LIMIT 5",
			expected: "SELECT * FROM users LIMIT 5",
		},
		{
			name:     "lowercase limit untouched",
			query:    "select * from users limit 10",
			expected: "select * from users limit 10",
		},
		{
			name:     "non-select untouched",
			query:    "CREATE TABLE t (a INT)",
			expected: "CREATE TABLE t (a INT)",
		},
		{
			name:     "insert untouched",
			query:    "INSERT INTO t VALUES (1)",
			expected: "INSERT INTO t VALUES (1)",
		},
		{
			name:     "column named unlimited still capped",
			query:    "SELECT unlimited_rows FROM t",
			expected: "SELECT unlimited_rows FROM t LIMIT 3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := applyDefaultLimit(tt.query, DefaultRowLimit); got != tt.expected {
				t.Errorf("applyDefaultLimit(%q) = %q, want %q", tt.query, got, tt.expected)
			}
		})
	}
}

func TestClassifyQueryError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected QueryErrorKind
	}{
		{
			name:     "parser error is syntax",
			err:      errors.New(`Parser Error: syntax error at or near "SELEC"`),
			expected: QueryErrorSyntax,
		},
		{
			name:     "missing table",
			err:      errors.New("Catalog Error: Table with name users does not exist!"),
			expected: QueryErrorTableNotFound,
		},
		{
			name:     "generic failure is execution",
			err:      errors.New("Out of Memory Error: could not allocate block"),
			expected: QueryErrorExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			qerr := classifyQueryError(tt.err)
			if qerr.Kind != tt.expected {
				t.Errorf("classifyQueryError(%v).Kind = %v, want %v", tt.err, qerr.Kind, tt.expected)
			}
			if !errors.Is(qerr, tt.err) {
				t.Error("classified error must unwrap to the original")
			}
		})
	}

	t.Run("Table-not-found matches sentinel", func(t *testing.T) {
		t.Parallel()

		qerr := classifyQueryError(errors.New("Catalog Error: Table with name t does not exist!"))
		if !errors.Is(qerr, ErrTableNotFound) {
			t.Error("expected errors.Is(qerr, ErrTableNotFound)")
		}
	})
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	midnight := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	afternoon := time.Date(2023, 5, 1, 14, 30, 15, 0, time.UTC)

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "nil is empty", value: nil, expected: ""},
		{name: "string passthrough", value: "hello", expected: "hello"},
		{name: "bytes", value: []byte("raw"), expected: "raw"},
		{name: "true", value: true, expected: "true"},
		{name: "false", value: false, expected: "false"},
		{name: "int64", value: int64(-42), expected: "-42"},
		{name: "float64", value: float64(3.5), expected: "3.5"},
		{name: "midnight renders date only", value: midnight, expected: "2023-05-01"},
		{name: "datetime renders full", value: afternoon, expected: "2023-05-01 14:30:15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := formatValue(tt.value); got != tt.expected {
				t.Errorf("formatValue(%v) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}
