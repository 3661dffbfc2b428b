package tablesql

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// parseXLSX parses the first sheet of an Excel workbook. The first row is
// the header; shorter data rows are padded with empty cells. Compressed
// workbooks are read into memory first since the xlsx container needs
// random access.
func (f *file) parseXLSX() (*Dataset, error) {
	var (
		workbook *excelize.File
		err      error
	)
	if f.compression != CompressionNone {
		reader, closer, err := f.openReader()
		if err != nil {
			return nil, err
		}
		data, readErr := io.ReadAll(reader)
		_ = closer()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.path, readErr)
		}
		workbook, err = excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", f.path, err)
		}
	} else {
		workbook, err = excelize.OpenFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", f.path, err)
		}
	}
	defer func() {
		_ = workbook.Close()
	}()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook: %s", f.path)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty in workbook: %s", sheets[0], f.path)
	}

	header := Header(rows[0])
	if err := validateColumnNames(header); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, padRecord(row, len(header)))
	}
	return NewDataset(TableNameFromPath(f.path), header, records), nil
}
