package tablesql

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// extSnapshot is the suffix of row-oriented JSON snapshot files, the
// fallback representation when columnar export is unavailable.
const extSnapshot = ".json" + extZSTD

// ExportTable serializes a registered table to a ZSTD-compressed Parquet
// file using the engine's own export capability. For memory-tier tables the
// path is recorded on the entry so later restarts can re-import it.
func (s *Store) ExportTable(ctx context.Context, name, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(ctx)

	name = SanitizeTableName(name)
	entry, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if !entry.ready() {
		return fmt.Errorf("%w: %s is not ready", ErrTableNotFound, name)
	}
	if _, err := s.ensureOpenLocked(ctx); err != nil {
		return err
	}

	stmt := "COPY (SELECT * FROM " + quoteIdent(name) + ") TO " + quotePath(path) +
		" (FORMAT PARQUET, COMPRESSION ZSTD)"
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("tablesql: failed to export table %s: %w", name, err)
	}

	if st, ok := entry.storage.(*memoryStorage); ok {
		st.snapshotPath = path
	}
	s.log.Info().Str("table", name).Str("file", path).Msg("table exported")
	return nil
}

// ExportSnapshot writes a memory-tier table's cached dataset as a
// ZSTD-compressed JSON snapshot. It is the fallback for environments where
// the engine's Parquet export is unavailable; snapshots round-trip through
// ImportFull like Parquet files do.
func (s *Store) ExportSnapshot(name, path string) error {
	s.mu.Lock()
	name = SanitizeTableName(name)
	entry, ok := s.tables[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	st, ok := entry.storage.(*memoryStorage)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("tablesql: table %s has no cached dataset to snapshot", name)
	}
	dataset := st.dataset
	s.mu.Unlock()

	if err := writeSnapshot(path, dataset); err != nil {
		return fmt.Errorf("tablesql: failed to write snapshot of %s: %w", name, err)
	}

	// Record the path only once the file is known to exist and be complete.
	s.mu.Lock()
	st.snapshotPath = path
	s.mu.Unlock()
	s.log.Info().Str("table", name).Str("file", path).Msg("snapshot written")
	return nil
}

// Restore re-registers every persisted table found in the data directory:
// Parquet exports and JSON snapshots, named by table. Intermediate CSVs from
// unfinished conversions are ignored. Per-table failures are logged and
// skipped so one bad file does not abort startup.
func (s *Store) Restore(ctx context.Context) error {
	entries, err := os.ReadDir(s.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("tablesql: failed to read data directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, extParquet) || strings.HasSuffix(name, extSnapshot) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	restored := 0
	for _, fileName := range names {
		path := filepath.Join(s.cfg.DataDir, fileName)
		tableName := TableNameFromPath(path)
		if err := s.RegisterFromFile(ctx, tableName, path); err != nil {
			s.log.Error().Err(err).Str("file", path).Msg("failed to restore table")
			continue
		}
		restored++
	}
	s.log.Info().Int("restored", restored).Msg("persisted tables restored")
	return nil
}

// ImportSchema reads only the schema and row count of a Parquet file,
// without materializing rows. Used at startup to decide whether a persisted
// table comes back as a memory table or a file view.
func ImportSchema(path string) ([]ColumnInfo, int64, error) {
	f, err := os.Open(path) //nolint:gosec // Caller-named persistence file
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	pqReader, err := pqfile.NewParquetReader(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read parquet schema: %w", err)
	}

	columns := make([]ColumnInfo, schema.NumFields())
	for i, field := range schema.Fields() {
		columns[i] = ColumnInfo{Name: field.Name, Type: columnTypeFromArrow(field.Type)}
	}
	return columns, pqReader.NumRows(), nil
}

// ImportFull reads an entire persisted table back into a dataset. Both
// Parquet exports and JSON snapshots are accepted.
func ImportFull(path string) (*Dataset, error) {
	switch {
	case strings.HasSuffix(path, extParquet):
		return readParquetDataset(path)
	case strings.HasSuffix(path, extSnapshot), strings.HasSuffix(path, extJSON):
		return readSnapshotDataset(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// parseParquet loads a Parquet input file as a dataset named after the file.
func (f *file) parseParquet() (*Dataset, error) {
	dataset, err := readParquetDataset(f.path)
	if err != nil {
		return nil, err
	}
	return NewDatasetWithColumns(TableNameFromPath(f.path), dataset.Columns(), dataset.Records()), nil
}

// readParquetDataset materializes all rows of a Parquet file into a dataset.
// The file is read into memory first since the format needs random access.
func readParquetDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Caller-named persistence file
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty parquet file: %s", path)
	}

	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	defer table.Release()

	schema := table.Schema()
	columns := make([]ColumnInfo, schema.NumFields())
	for i, field := range schema.Fields() {
		columns[i] = ColumnInfo{Name: field.Name, Type: columnTypeFromArrow(field.Type)}
	}

	records := make([]Record, 0, table.NumRows())
	tableReader := array.NewTableReader(table, 0)
	defer tableReader.Release()
	for tableReader.Next() {
		batch := tableReader.Record()
		for i := range batch.NumRows() {
			row := make(Record, batch.NumCols())
			for j, col := range batch.Columns() {
				row[j] = arrowCellString(col, int(i))
			}
			records = append(records, row)
		}
	}
	if err := tableReader.Err(); err != nil {
		return nil, fmt.Errorf("failed to enumerate parquet rows: %w", err)
	}

	return NewDatasetWithColumns(TableNameFromPath(path), columns, records), nil
}

// arrowCellString renders one Arrow array element as a dataset cell. Nulls
// become empty strings, matching the insert literal convention.
func arrowCellString(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return ""
	}
	switch arr := col.(type) {
	case *array.String:
		return arr.Value(i)
	case *array.LargeString:
		return arr.Value(i)
	case *array.Int64:
		return strconv.FormatInt(arr.Value(i), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(arr.Value(i)), 10)
	case *array.Float64:
		return strconv.FormatFloat(arr.Value(i), 'g', -1, 64)
	case *array.Float32:
		return strconv.FormatFloat(float64(arr.Value(i)), 'g', -1, 32)
	case *array.Boolean:
		return strconv.FormatBool(arr.Value(i))
	default:
		return col.ValueStr(i)
	}
}

// columnTypeFromArrow maps an Arrow field type to the dataset column type.
func columnTypeFromArrow(dt arrow.DataType) ColumnType {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return ColumnTypeInteger
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return ColumnTypeReal
	case arrow.BOOL:
		return ColumnTypeBoolean
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return ColumnTypeDatetime
	default:
		return ColumnTypeText
	}
}

// tableSnapshot is the row-oriented JSON fallback representation.
type tableSnapshot struct {
	Name    string           `json:"name"`
	Columns []snapshotColumn `json:"columns"`
	Records [][]string       `json:"records"`
}

type snapshotColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// writeSnapshot serializes a dataset to a JSON snapshot file, ZSTD
// compressed when the path carries the .zst suffix.
func writeSnapshot(path string, dataset *Dataset) error {
	snapshot := tableSnapshot{
		Name:    dataset.Name(),
		Columns: make([]snapshotColumn, 0, len(dataset.Columns())),
		Records: make([][]string, 0, dataset.RowCount()),
	}
	for _, col := range dataset.Columns() {
		snapshot.Columns = append(snapshot.Columns, snapshotColumn{Name: col.Name, Type: columnTypeName(col.Type)})
	}
	for _, record := range dataset.Records() {
		snapshot.Records = append(snapshot.Records, record)
	}

	f, err := os.Create(path) //nolint:gosec // Caller-named persistence file
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, extZSTD) {
		encoder, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return err
		}
		if err := json.NewEncoder(encoder).Encode(snapshot); err != nil {
			_ = encoder.Close()
			_ = f.Close()
			return err
		}
		if err := encoder.Close(); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	if err := json.NewEncoder(f).Encode(snapshot); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// readSnapshotDataset reads a JSON snapshot file back into a dataset.
func readSnapshotDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Caller-named persistence file
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, extZSTD) {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		if data, err = decoder.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot %s: %w", path, err)
		}
	}

	var snapshot tableSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	columns := make([]ColumnInfo, 0, len(snapshot.Columns))
	for _, col := range snapshot.Columns {
		columns = append(columns, ColumnInfo{Name: col.Name, Type: columnTypeFromName(col.Type)})
	}
	records := make([]Record, 0, len(snapshot.Records))
	for _, row := range snapshot.Records {
		records = append(records, Record(row))
	}

	name := snapshot.Name
	if name == "" {
		name = TableNameFromPath(path)
	}
	return NewDatasetWithColumns(name, columns, records), nil
}

// columnTypeName and columnTypeFromName translate column types to the
// stable names stored in snapshot files.
func columnTypeName(t ColumnType) string {
	switch t {
	case ColumnTypeInteger:
		return "integer"
	case ColumnTypeReal:
		return "real"
	case ColumnTypeBoolean:
		return "boolean"
	case ColumnTypeDatetime:
		return "datetime"
	default:
		return "text"
	}
}

func columnTypeFromName(name string) ColumnType {
	switch name {
	case "integer":
		return ColumnTypeInteger
	case "real":
		return ColumnTypeReal
	case "boolean":
		return ColumnTypeBoolean
	case "datetime":
		return ColumnTypeDatetime
	default:
		return ColumnTypeText
	}
}
