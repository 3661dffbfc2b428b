package tablesql

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/google/uuid"
)

// conversionChunkRows is the number of CSV rows per Arrow record batch
// during background conversion. Bounds conversion memory independently of
// table size.
const conversionChunkRows = 10_000

// swapRequest is the message a finished background conversion posts for the
// lock-holder: repoint the named view from the intermediate CSV to the
// converted Parquet file.
type swapRequest struct {
	name        string
	csvPath     string
	parquetPath string
}

// startConversion launches the background CSV-to-Parquet conversion for a
// freshly registered file-view table. The conversion itself runs entirely
// off the Store lock; only the final view swap is applied under it.
func (s *Store) startConversion(name, csvPath, parquetPath string, columns []ColumnInfo) {
	jobID := uuid.New().String()[:8]
	logger := s.log.With().Str("job", jobID).Str("table", name).Logger()

	go func() {
		logger.Debug().Msg("parquet conversion started")
		if err := convertCSVToParquet(csvPath, parquetPath, columns); err != nil {
			// The CSV view keeps serving queries; conversion is retried the
			// next time the table is registered.
			logger.Error().Err(err).Msg("parquet conversion failed")
			return
		}
		s.postSwap(swapRequest{name: name, csvPath: csvPath, parquetPath: parquetPath})
		logger.Debug().Msg("parquet conversion finished")
	}()
}

// postSwap hands a finished conversion to the next lock-holder and nudges the
// Store so the swap lands even on an idle instance. A full channel falls back
// to applying the swap directly under the lock; the converter goroutine never
// blocks on the send.
func (s *Store) postSwap(req swapRequest) {
	select {
	case s.swapCh <- req:
		s.applyPendingSwaps()
	default:
		s.mu.Lock()
		s.drainSwapsLocked(context.Background())
		s.applySwapLocked(context.Background(), req)
		s.mu.Unlock()
	}
}

// applyPendingSwaps acquires the lock once and drains completed conversions.
func (s *Store) applyPendingSwaps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainSwapsLocked(context.Background())
}

// drainSwapsLocked consumes completed conversion messages and repoints each
// affected view at its Parquet file. Called at the start of every public
// operation while the lock is held, so the swap is always applied by a
// lock-holder rather than by the converting goroutine. The intermediate CSV
// is deleted after a successful swap.
func (s *Store) drainSwapsLocked(ctx context.Context) {
	for {
		select {
		case req := <-s.swapCh:
			s.applySwapLocked(ctx, req)
		default:
			return
		}
	}
}

func (s *Store) applySwapLocked(ctx context.Context, req swapRequest) {
	entry, ok := s.tables[req.name]
	if !ok {
		// Table was removed while converting. Keep the Parquet file for the
		// next registration of this name; the CSV is no longer needed.
		_ = os.Remove(req.csvPath)
		return
	}
	st, ok := entry.storage.(*fileStorage)
	if !ok || st.path != req.csvPath {
		// Entry was replaced while converting; the new entry owns its own
		// backing file.
		_ = os.Remove(req.csvPath)
		return
	}

	if s.db != nil && entry.status == StatusReady {
		if err := s.createFileViewLocked(ctx, req.name, req.parquetPath); err != nil {
			s.log.Error().Err(err).Str("table", req.name).Msg("view swap to parquet failed")
			return
		}
	}
	// While closed, updating the backing path is enough: the next replay
	// recreates the view from the Parquet file.
	st.path = req.parquetPath
	_ = os.Remove(req.csvPath)
	s.log.Info().Str("table", req.name).Str("file", req.parquetPath).Msg("view swapped to parquet")
}

// convertCSVToParquet streams a CSV file into a ZSTD-compressed Parquet
// file, one Arrow record batch at a time. The target is written to a
// temporary path and renamed into place so readers never observe a partial
// file.
func convertCSVToParquet(csvPath, parquetPath string, columns []ColumnInfo) error {
	in, err := os.Open(csvPath) //nolint:gosec // Path was produced by the Store itself
	if err != nil {
		return fmt.Errorf("failed to open intermediate csv: %w", err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read csv header: %w", err)
	}

	schema := arrowSchema(columns)
	tmpPath := parquetPath + ".tmp"
	out, err := os.Create(tmpPath) //nolint:gosec // Path was produced by the Store itself
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Zstd))
	writer, err := pqarrow.NewFileWriter(schema, out, props, pqarrow.DefaultWriterProps())
	if err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	rowsInChunk := 0
	flush := func() error {
		if rowsInChunk == 0 {
			return nil
		}
		rec := builder.NewRecord()
		defer rec.Release()
		rowsInChunk = 0
		return writer.Write(rec)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = writer.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("failed to read csv record: %w", err)
		}

		appendRecord(builder, columns, record)
		rowsInChunk++
		if rowsInChunk >= conversionChunkRows {
			if err := flush(); err != nil {
				_ = writer.Close()
				_ = os.Remove(tmpPath)
				return fmt.Errorf("failed to write parquet batch: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		_ = writer.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write parquet batch: %w", err)
	}

	// FileWriter.Close also closes the underlying file.
	if err := writer.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return os.Rename(tmpPath, parquetPath)
}

// arrowSchema maps inferred column types to an Arrow schema. Numeric
// columns keep native types; everything else is stored as nullable strings,
// mirroring the DDL mapping of memory tables.
func arrowSchema(columns []ColumnInfo) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		var dt arrow.DataType
		switch col.Type {
		case ColumnTypeInteger:
			dt = arrow.PrimitiveTypes.Int64
		case ColumnTypeReal:
			dt = arrow.PrimitiveTypes.Float64
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: col.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// appendRecord appends one CSV row to the record builder, treating empty
// cells as nulls for typed columns.
func appendRecord(builder *array.RecordBuilder, columns []ColumnInfo, record []string) {
	for i, col := range columns {
		var value string
		if i < len(record) {
			value = record[i]
		}
		switch fb := builder.Field(i).(type) {
		case *array.Int64Builder:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				fb.AppendNull()
			} else {
				fb.Append(n)
			}
		case *array.Float64Builder:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				fb.AppendNull()
			} else {
				fb.Append(f)
			}
		case *array.StringBuilder:
			if value == "" && col.Type != ColumnTypeText {
				fb.AppendNull()
			} else {
				fb.Append(value)
			}
		}
	}
}
