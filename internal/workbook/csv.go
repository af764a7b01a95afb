package workbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/workbook-validation-api/internal/models"
)

// readCSV reads a single-sheet workbook. CSV cells are always text; empty
// cells become null.
func readCSV(r io.Reader, sheetName string) (*Workbook, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return New(&Sheet{Name: sheetName}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", ErrWorkbookLoad, err)
	}

	headers, cols := headerIndex(header)
	sheet := &Sheet{Name: sheetName, Headers: headers}

	lineNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %v", ErrWorkbookLoad, lineNum, err)
		}

		row := make(models.Row, len(headers))
		for _, h := range headers {
			row[h] = models.Null()
		}
		for i, cell := range record {
			h, ok := cols[i]
			if !ok || cell == "" {
				continue
			}
			row[h] = models.Text(cell)
		}

		if !isEmptyRow(row) {
			sheet.Rows = append(sheet.Rows, row)
		}
	}

	return New(sheet), nil
}
