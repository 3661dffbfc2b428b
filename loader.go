package tablesql

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RegisterTable materializes a dataset into the engine under the dataset's
// (sanitized) name and records the outcome in the registry. The storage tier
// is decided once from the row count: datasets at or above the large-table
// threshold become views over a file, everything else becomes a native
// in-memory table.
//
// Registering a name that already exists fully replaces the previous entry.
// Per-table load failures are recorded on the entry and returned as a
// *RegistrationError; callers that keep going should check IsTableReady.
// Structural failures (the engine cannot be opened) propagate directly.
func (s *Store) RegisterTable(ctx context.Context, dataset *Dataset) error {
	if dataset == nil || len(dataset.Header()) == 0 {
		return ErrEmptyDataset
	}
	if err := validateColumnNames(dataset.Header()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(ctx)

	if _, err := s.ensureOpenLocked(ctx); err != nil {
		return err
	}

	name := SanitizeTableName(dataset.Name())
	tier := decideTier(dataset.RowCount(), s.cfg.LargeTableThreshold)

	entry := &tableEntry{name: name, status: StatusLoading}
	switch tier {
	case TierMemory:
		entry.storage = &memoryStorage{dataset: dataset}
	case TierFileView:
		// The dataset is not cached for file views; the backing file is
		// filled in by registerFileViewLocked.
		entry.storage = &fileStorage{}
	}
	s.tables[name] = entry

	var err error
	switch tier {
	case TierMemory:
		err = s.registerMemoryLocked(ctx, entry, dataset)
	case TierFileView:
		err = s.registerFileViewLocked(ctx, entry, dataset)
	}
	if err != nil {
		entry.status = StatusFailed
		entry.failReason = err.Error()
		// CREATE TABLE auto-commits before the inserts run; drop whatever the
		// failed load left behind so the name is not queryable.
		_ = s.dropObjectLocked(ctx, name)
		s.log.Error().Err(err).Str("table", name).Msg("table registration failed")
		return err
	}

	entry.status = StatusReady
	entry.failReason = ""
	s.log.Info().
		Str("table", name).
		Stringer("tier", tier).
		Int("rows", dataset.RowCount()).
		Msg("table registered")
	return nil
}

// registerMemoryLocked creates a native table and inserts all rows in
// batches inside one transaction. A failing batch falls back to row-by-row
// insertion to isolate the offending row index. Empty datasets produce an
// empty but valid table.
func (s *Store) registerMemoryLocked(ctx context.Context, entry *tableEntry, dataset *Dataset) error {
	if err := s.dropObjectLocked(ctx, entry.name); err != nil {
		return &RegistrationError{Table: entry.name, Row: -1, Err: err}
	}

	if _, err := s.db.ExecContext(ctx, buildCreateTable(entry.name, dataset.Columns())); err != nil {
		return &RegistrationError{Table: entry.name, Row: -1, Err: err}
	}

	records := dataset.Records()
	if len(records) == 0 {
		return nil
	}

	if err := s.insertBatchedLocked(ctx, entry.name, records); err != nil {
		// Isolate the offending row so the failure reason names it.
		if row, rowErr := s.insertRowByRowLocked(ctx, entry.name, records); rowErr != nil {
			return &RegistrationError{Table: entry.name, Row: row, Err: rowErr}
		}
		// Row-by-row succeeded where the batch did not; keep the result.
		s.log.Warn().Err(err).Str("table", entry.name).Msg("batched insert failed, row-by-row fallback succeeded")
	}
	return nil
}

// insertBatchedLocked inserts records in multi-row INSERT statements of
// InsertBatchSize rows inside one transaction.
func (s *Store) insertBatchedLocked(ctx context.Context, name string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	batchSize := s.cfg.InsertBatchSize
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if _, err := tx.ExecContext(ctx, buildInsert(name, records[start:end])); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// insertRowByRowLocked inserts records one statement at a time and returns
// the index of the first failing row. The whole transaction is rolled back
// on failure so a partial table never looks Ready.
func (s *Store) insertRowByRowLocked(ctx context.Context, name string, records []Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return -1, err
	}
	for i, record := range records {
		if _, err := tx.ExecContext(ctx, buildInsert(name, []Record{record})); err != nil {
			_ = tx.Rollback()
			return i, err
		}
	}
	return -1, tx.Commit()
}

// registerFileViewLocked writes the dataset to an intermediate CSV, creates
// a view over it, and hands the CSV to the background Parquet conversion.
// When a previously converted Parquet file for this name already exists on
// disk, the CSV step is skipped entirely.
func (s *Store) registerFileViewLocked(ctx context.Context, entry *tableEntry, dataset *Dataset) error {
	st := entry.storage.(*fileStorage)

	parquetPath := filepath.Join(s.cfg.DataDir, entry.name+extParquet)
	if _, err := os.Stat(parquetPath); err == nil {
		if err := s.createFileViewLocked(ctx, entry.name, parquetPath); err != nil {
			return &RegistrationError{Table: entry.name, Row: -1, Err: err}
		}
		st.path = parquetPath
		return nil
	}

	csvPath := filepath.Join(s.cfg.DataDir, entry.name+extCSV)
	if err := writeDatasetCSV(csvPath, dataset, s.cfg.FileViewFlushRows); err != nil {
		return &RegistrationError{Table: entry.name, Row: -1, Err: err}
	}

	if err := s.createFileViewLocked(ctx, entry.name, csvPath); err != nil {
		_ = os.Remove(csvPath)
		return &RegistrationError{Table: entry.name, Row: -1, Err: err}
	}
	st.path = csvPath

	s.startConversion(entry.name, csvPath, parquetPath, dataset.Columns())
	return nil
}

// createFileViewLocked points the named view at a CSV or Parquet file using
// the engine's file-scanning functions.
func (s *Store) createFileViewLocked(ctx context.Context, name, path string) error {
	var scan string
	if strings.HasSuffix(path, extParquet) {
		scan = "read_parquet(" + quotePath(path) + ")"
	} else {
		scan = "read_csv_auto(" + quotePath(path) + ", header=true)"
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return err
	}
	stmt := "CREATE OR REPLACE VIEW " + quoteIdent(name) + " AS SELECT * FROM " + scan
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// RegisterFromFile registers a table directly from an already-persisted file
// without needing the original dataset in memory. Parquet files are peeked
// for schema and row count first: large tables come back as file views,
// small ones are read fully and re-registered as memory tables. JSON
// snapshot files (plain or .zst) are always read fully.
func (s *Store) RegisterFromFile(ctx context.Context, name, path string) error {
	name = SanitizeTableName(name)

	if strings.HasSuffix(path, extParquet) {
		_, rowCount, err := ImportSchema(path)
		if err != nil {
			return fmt.Errorf("tablesql: failed to read schema of %s: %w", path, err)
		}
		if int(rowCount) >= s.cfg.LargeTableThreshold {
			return s.registerPersistedView(ctx, name, path)
		}
	}

	dataset, err := ImportFull(path)
	if err != nil {
		return fmt.Errorf("tablesql: failed to import %s: %w", path, err)
	}
	renamed := NewDatasetWithColumns(name, dataset.Columns(), dataset.Records())
	if err := s.RegisterTable(ctx, renamed); err != nil {
		return err
	}
	if strings.HasSuffix(path, extParquet) {
		s.mu.Lock()
		if entry, ok := s.tables[name]; ok {
			if st, ok := entry.storage.(*memoryStorage); ok {
				st.snapshotPath = path
			}
		}
		s.mu.Unlock()
	}
	return nil
}

// registerPersistedView registers a large persisted Parquet file as a
// file-view entry.
func (s *Store) registerPersistedView(ctx context.Context, name, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(ctx)

	if _, err := s.ensureOpenLocked(ctx); err != nil {
		return err
	}

	entry := &tableEntry{name: name, status: StatusLoading, storage: &fileStorage{path: path}}
	s.tables[name] = entry

	if err := s.createFileViewLocked(ctx, name, path); err != nil {
		entry.status = StatusFailed
		entry.failReason = err.Error()
		_ = s.dropObjectLocked(ctx, name)
		return &RegistrationError{Table: name, Row: -1, Err: err}
	}
	entry.status = StatusReady
	s.log.Info().Str("table", name).Str("file", path).Msg("persisted table registered as file view")
	return nil
}

// replayTableLocked re-registers one table after a reopen: memory tables
// from their cached dataset, file views from their backing file. The
// outcome is recorded on the entry; one table's failure never aborts the
// replay of the others.
func (s *Store) replayTableLocked(ctx context.Context, entry *tableEntry) {
	var err error
	switch st := entry.storage.(type) {
	case *memoryStorage:
		err = s.registerMemoryLocked(ctx, entry, st.dataset)
	case *fileStorage:
		err = s.createFileViewLocked(ctx, entry.name, st.path)
	}
	if err != nil {
		entry.status = StatusFailed
		entry.failReason = err.Error()
		_ = s.dropObjectLocked(ctx, entry.name)
		s.log.Error().Err(err).Str("table", entry.name).Msg("table replay failed")
		return
	}
	entry.status = StatusReady
	entry.failReason = ""
}

// buildCreateTable generates the CREATE TABLE statement for a memory table.
func buildCreateTable(name string, columns []ColumnInfo) string {
	cols := make([]string, 0, len(columns))
	for _, col := range columns {
		cols = append(cols, quoteIdent(col.Name)+" "+col.Type.String())
	}
	return "CREATE TABLE " + quoteIdent(name) + " (" + strings.Join(cols, ", ") + ")"
}

// buildInsert generates a multi-row INSERT statement with literal values.
func buildInsert(name string, records []Record) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" VALUES ")
	for i, record := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, value := range record {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(sqlLiteral(value))
		}
		b.WriteByte(')')
	}
	return b.String()
}

// writeDatasetCSV streams a dataset to a CSV file, flushing every flushRows
// rows to bound buffered memory.
func writeDatasetCSV(path string, dataset *Dataset, flushRows int) error {
	f, err := os.Create(path) //nolint:gosec // Path is DataDir + sanitized table name
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(dataset.Header()); err != nil {
		_ = f.Close()
		return err
	}
	for i, record := range dataset.Records() {
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return err
		}
		if flushRows > 0 && (i+1)%flushRows == 0 {
			w.Flush()
			if err := w.Error(); err != nil {
				_ = f.Close()
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
