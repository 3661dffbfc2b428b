package tablesql

// StorageTier decides where a table physically lives inside the engine.
type StorageTier int

const (
	// TierMemory materializes the full row data as a native engine table.
	TierMemory StorageTier = iota
	// TierFileView exposes the table as a view over an external file.
	TierFileView
)

// String returns the tier name.
func (t StorageTier) String() string {
	if t == TierFileView {
		return "file_view"
	}
	return "memory"
}

// DefaultLargeTableThreshold is the row count at which a table is registered
// as a file-backed view instead of an in-memory table.
const DefaultLargeTableThreshold = 100_000

// decideTier picks the storage tier for a table from its row count. The
// decision is made once at registration time and never revisited.
func decideTier(rowCount, largeTableThreshold int) StorageTier {
	if rowCount >= largeTableThreshold {
		return TierFileView
	}
	return TierMemory
}

// LoadStatus tracks the lifecycle of a registered table.
type LoadStatus int

const (
	// StatusLoading means registration is in progress or the connection was
	// closed and the table has not been replayed yet.
	StatusLoading LoadStatus = iota
	// StatusReady means the table is materialized and queryable.
	StatusReady
	// StatusFailed means the last registration or replay failed.
	StatusFailed
)

// String returns the status name.
func (s LoadStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "loading"
	}
}

// tableStorage is the tier-specific part of a registry entry. Exactly one of
// the two variants exists per table, so a memory table without a dataset or
// a file view without a path cannot be represented.
type tableStorage interface {
	tier() StorageTier
}

// memoryStorage holds the cached dataset of a memory-tier table. The dataset
// is retained so the table can be rebuilt after a reopen and exported for
// persistence. snapshotPath is set once the table has been exported to disk;
// it does not affect the query-time tier.
type memoryStorage struct {
	dataset      *Dataset
	snapshotPath string
}

func (memoryStorage) tier() StorageTier { return TierMemory }

// fileStorage holds the backing file of a file-view table: the intermediate
// CSV right after registration, the compressed Parquet file once background
// conversion has swapped the view.
type fileStorage struct {
	path string
}

func (fileStorage) tier() StorageTier { return TierFileView }

// tableEntry is one row of the in-memory table registry.
type tableEntry struct {
	name       string
	storage    tableStorage
	status     LoadStatus
	failReason string
}

// ready reports whether the table is queryable given an open connection.
func (e *tableEntry) ready() bool {
	return e.status == StatusReady
}

// TableInfo is a read-only snapshot of a registry entry.
type TableInfo struct {
	Name       string
	Tier       StorageTier
	Status     LoadStatus
	FailReason string
	// BackingFile is the file-view backing path, or the persistence snapshot
	// path of a memory table if one has been exported.
	BackingFile string
	RowCount    int
}
