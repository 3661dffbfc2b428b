package tablesql

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the error taxonomy surfaced by the Store.
var (
	// ErrConnection indicates the embedded engine could not be allocated or opened
	ErrConnection = errors.New("tablesql: connection error")

	// ErrTableNotFound indicates a table is unregistered, removed, or not ready
	ErrTableNotFound = errors.New("tablesql: table not found")

	// ErrEmptyQuery indicates an empty or whitespace-only SQL statement
	ErrEmptyQuery = errors.New("tablesql: empty query")

	// ErrEmptyDataset indicates a dataset with no columns
	ErrEmptyDataset = errors.New("tablesql: dataset has no columns")

	// ErrDuplicateColumnName is returned when a dataset contains duplicate column names
	ErrDuplicateColumnName = errors.New("tablesql: duplicate column name")

	// ErrUnsupportedFormat indicates an unsupported file format
	ErrUnsupportedFormat = errors.New("tablesql: unsupported file format")

	// ErrNoInputs indicates a Builder with no usable input files
	ErrNoInputs = errors.New("tablesql: no input files")

	// ErrDuplicateTableName is returned when two inputs map to the same table name
	ErrDuplicateTableName = errors.New("tablesql: duplicate table name")
)

// QueryErrorKind classifies a failed query attempt. The kind decides whether
// the failure is eligible for a recovery-and-retry cycle.
type QueryErrorKind int

const (
	// QueryErrorExecution is a runtime failure; eligible for one recovery-and-retry cycle.
	QueryErrorExecution QueryErrorKind = iota
	// QueryErrorSyntax is a malformed statement; never triggers recovery.
	QueryErrorSyntax
	// QueryErrorTableNotFound references an unregistered or failed table.
	QueryErrorTableNotFound
)

// String returns a short name for the kind.
func (k QueryErrorKind) String() string {
	switch k {
	case QueryErrorSyntax:
		return "syntax"
	case QueryErrorTableNotFound:
		return "table not found"
	default:
		return "execution"
	}
}

// QueryError wraps a failure from the embedded engine with its classified
// kind. The engine's own diagnostic text is preserved verbatim so callers
// can surface it directly.
type QueryError struct {
	Kind QueryErrorKind
	Err  error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("tablesql: query failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error. Table-not-found errors additionally
// match ErrTableNotFound via errors.Is.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches a taxonomy sentinel.
func (e *QueryError) Is(target error) bool {
	return target == ErrTableNotFound && e.Kind == QueryErrorTableNotFound
}

// RegistrationError records a per-table load failure. Registration failures
// are absorbed into the table's load status rather than aborting other
// tables; the same value is also returned to the registering caller.
type RegistrationError struct {
	Table string
	// Row is the index of the offending row when row-by-row fallback
	// isolated one, -1 otherwise.
	Row int
	Err error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("tablesql: registration of table %q failed at row %d: %v", e.Table, e.Row, e.Err)
	}
	return fmt.Sprintf("tablesql: registration of table %q failed: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *RegistrationError) Unwrap() error { return e.Err }

// classifyQueryError assigns a QueryErrorKind to an engine error.
//
// database/sql erases DuckDB's structured error type, so classification
// falls back on the diagnostic text. DuckDB prefixes parser failures with
// "Parser Error" / "Syntax Error" and missing relations with
// "Catalog Error: Table ... does not exist".
func classifyQueryError(err error) *QueryError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "syntax") || strings.Contains(msg, "parser error") || strings.Contains(msg, "parse error"):
		return &QueryError{Kind: QueryErrorSyntax, Err: err}
	case strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found"):
		return &QueryError{Kind: QueryErrorTableNotFound, Err: err}
	default:
		return &QueryError{Kind: QueryErrorExecution, Err: err}
	}
}
