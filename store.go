package tablesql

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// Defaults for Config fields left zero.
const (
	// DefaultInsertBatchSize is the number of rows per generated INSERT statement.
	DefaultInsertBatchSize = 10_000
	// DefaultFileViewFlushRows is the number of buffered rows between flushes
	// when writing the intermediate CSV of a file-view table.
	DefaultFileViewFlushRows = 500_000
	// DefaultRowLimit is the row cap appended to unbounded SELECT statements.
	DefaultRowLimit = 3000
)

// Config holds Store settings. The zero value is usable; zero fields fall
// back to the package defaults.
type Config struct {
	// DataDir is the directory holding persisted Parquet files and the
	// intermediate CSVs of file-view tables. Defaults to a per-process
	// directory under os.TempDir().
	DataDir string
	// LargeTableThreshold is the row count at which tables become file views.
	LargeTableThreshold int
	// InsertBatchSize is the number of rows per batched INSERT.
	InsertBatchSize int
	// FileViewFlushRows bounds memory while writing intermediate CSVs.
	FileViewFlushRows int
	// DefaultRowLimit caps unbounded SELECT statements.
	DefaultRowLimit int
	// Threads is the engine thread count; 0 means GOMAXPROCS.
	Threads int
	// Logger receives structured progress and failure events. Nil discards
	// everything.
	Logger *zerolog.Logger
}

// DefaultConfig returns a Config with all defaults filled in.
func DefaultConfig() Config {
	return Config{
		DataDir:             filepath.Join(os.TempDir(), fmt.Sprintf("tablesql-%d", os.Getpid())),
		LargeTableThreshold: DefaultLargeTableThreshold,
		InsertBatchSize:     DefaultInsertBatchSize,
		FileViewFlushRows:   DefaultFileViewFlushRows,
		DefaultRowLimit:     DefaultRowLimit,
	}
}

// fill replaces zero fields with defaults.
func (c Config) fill() Config {
	def := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.LargeTableThreshold <= 0 {
		c.LargeTableThreshold = def.LargeTableThreshold
	}
	if c.InsertBatchSize <= 0 {
		c.InsertBatchSize = def.InsertBatchSize
	}
	if c.FileViewFlushRows <= 0 {
		c.FileViewFlushRows = def.FileViewFlushRows
	}
	if c.DefaultRowLimit <= 0 {
		c.DefaultRowLimit = def.DefaultRowLimit
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}

// Store owns the single DuckDB connection and the table registry. Every
// public operation acquires one process-wide mutex for its full duration, so
// no two goroutines ever issue concurrent statements on the connection.
//
// The connection is opened lazily; Close releases it but keeps the registry,
// and the next failed query (or explicit Open) brings the tables back by
// replaying their registrations.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB // nil while closed
	tables map[string]*tableEntry
	cfg    Config
	log    zerolog.Logger

	// swapCh carries completed background conversions. Messages are consumed
	// under the lock by whichever operation runs next, never by the
	// converting goroutine itself.
	swapCh chan swapRequest

	// reopenCount increments on every fresh engine allocation after the
	// first. Observable so tests can assert that syntax errors never
	// trigger recovery.
	reopenCount int
	everOpened  bool
}

// NewStore creates a Store with the given configuration. The engine
// connection is opened on first use.
func NewStore(cfg Config) (*Store, error) {
	cfg = cfg.fill()
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("tablesql: failed to create data directory %s: %w", cfg.DataDir, err)
	}
	return &Store{
		tables: make(map[string]*tableEntry),
		cfg:    cfg,
		log:    *cfg.Logger,
		swapCh: make(chan swapRequest, 32),
	}, nil
}

// Open ensures the engine connection exists. It is idempotent; an already
// open Store is left untouched.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ensureOpenLocked(ctx)
	return err
}

// Close releases the engine connection and handle. Every registered table's
// load status is forced back to loading; cached datasets and backing files
// are kept so the tables can be replayed after a reopen.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	for _, entry := range s.tables {
		if entry.status == StatusReady {
			entry.status = StatusLoading
		}
	}
	s.log.Debug().Msg("engine connection closed")
	return err
}

// IsOpen reports whether the engine connection is currently open.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// ReopenCount returns how many times the connection has been re-allocated
// after a close. Exposed for observability; recovery increments it.
func (s *Store) ReopenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reopenCount
}

// ensureOpenLocked returns the live connection, allocating a fresh in-memory
// engine first if needed. Callers must hold s.mu.
func (s *Store) ensureOpenLocked(ctx context.Context) (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	// Session settings do not propagate across pooled connections, so the
	// engine is pinned to exactly one.
	db.SetMaxOpenConns(1)

	threads := s.cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("SET threads = %d", threads)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: set threads: %v", ErrConnection, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if s.everOpened {
		s.reopenCount++
	}
	s.everOpened = true
	s.db = db
	s.log.Debug().Int("threads", threads).Msg("engine connection opened")
	return db, nil
}

// TableNames returns the names of all registered tables in sorted order,
// regardless of load status.
func (s *Store) TableNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(context.Background())
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTableReady reports whether a table is currently queryable: registered,
// loaded, and the connection open.
func (s *Store) IsTableReady(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(context.Background())
	entry, ok := s.tables[SanitizeTableName(name)]
	return ok && entry.ready() && s.db != nil
}

// TableInfo returns a snapshot of a registry entry.
func (s *Store) TableInfo(name string) (TableInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tables[SanitizeTableName(name)]
	if !ok {
		return TableInfo{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	info := TableInfo{
		Name:       entry.name,
		Tier:       entry.storage.tier(),
		Status:     entry.status,
		FailReason: entry.failReason,
	}
	switch st := entry.storage.(type) {
	case *memoryStorage:
		info.BackingFile = st.snapshotPath
		info.RowCount = st.dataset.RowCount()
	case *fileStorage:
		info.BackingFile = st.path
	}
	return info, nil
}

// RemoveTable drops the table's DDL object and removes the registry entry.
// On-disk persistence files are not deleted; that is the caller's
// responsibility.
func (s *Store) RemoveTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(ctx)

	name = SanitizeTableName(name)
	entry, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	if s.db != nil {
		if err := s.dropObjectLocked(ctx, name); err != nil {
			return fmt.Errorf("tablesql: failed to drop table %s: %w", name, err)
		}
	}
	delete(s.tables, name)
	s.log.Info().Str("table", entry.name).Msg("table removed")
	return nil
}

// dropObjectLocked removes whatever DDL object currently carries the name.
// Views and tables share a namespace, so both forms are issued.
func (s *Store) dropObjectLocked(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DROP VIEW IF EXISTS "+quoteIdent(name)); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return err
	}
	return nil
}
