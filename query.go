package tablesql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// QueryResult is the shaped outcome of one executed query. It is owned by
// the caller; the Store keeps no reference to it.
type QueryResult struct {
	// Columns is the ordered output column list. SQL permits duplicate
	// output names, so uniqueness is not guaranteed.
	Columns []string
	// Rows holds every result row; each row has exactly len(Columns) cells.
	Rows [][]string
	// RowCount equals len(Rows).
	RowCount int
	// ExecutionTime is the wall-clock duration of the attempt that produced
	// this result, excluding any prior failed attempt and recovery.
	ExecutionTime time.Duration
}

// limitClauseRe detects an existing row-limit clause in a statement.
var limitClauseRe = regexp.MustCompile(`(?i)\blimit\b`)

// Execute runs one SQL statement against the registered tables and shapes
// the result. Unbounded SELECT statements get the default row cap appended;
// statements with an explicit LIMIT are left untouched, as are non-SELECT
// statements.
//
// A failure that is not a syntax error triggers exactly one silent
// recovery cycle: the connection is reopened, every registered table is
// replayed from its cached dataset or backing file, and the statement is
// retried once. Syntax errors are returned immediately with the engine's
// diagnostic text, since reopening cannot fix a malformed statement.
func (s *Store) Execute(ctx context.Context, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	query = applyDefaultLimit(query, s.cfg.DefaultRowLimit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(ctx)

	if _, err := s.ensureOpenLocked(ctx); err != nil {
		return nil, err
	}

	result, err := s.executeOnceLocked(ctx, query)
	if err == nil {
		return result, nil
	}

	qerr := classifyQueryError(err)
	if qerr.Kind == QueryErrorSyntax {
		return nil, qerr
	}

	s.log.Warn().Err(err).Msg("query failed, recovering connection")
	if recErr := s.recoverLocked(ctx); recErr != nil {
		return nil, fmt.Errorf("tablesql: recovery failed: %w", recErr)
	}

	result, err = s.executeOnceLocked(ctx, query)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	return result, nil
}

// executeOnceLocked runs the statement on the live connection and
// enumerates all result rows. The execution time covers only this attempt.
func (s *Store) executeOnceLocked(ctx context.Context, query string) (*QueryResult, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]string
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{
		Columns:       columns,
		Rows:          out,
		RowCount:      len(out),
		ExecutionTime: time.Since(start),
	}, nil
}

// applyDefaultLimit appends a row cap to unbounded SELECT statements. The
// cap bounds rendering cost, not correctness; anything that already limits
// its rows, and every non-SELECT statement, passes through unmodified.
func applyDefaultLimit(query string, limit int) string {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return query
	}
	if limitClauseRe.MatchString(trimmed) {
		return query
	}
	trimmed = strings.TrimSuffix(trimmed, ";")
	return trimmed + " LIMIT " + strconv.Itoa(limit)
}

// formatValue renders one scanned engine value as a display string. NULL
// becomes the empty string, matching how datasets represent missing cells.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case sql.RawBytes:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
