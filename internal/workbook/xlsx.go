package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/workbook-validation-api/internal/models"
)

func readXLSX(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkbookLoad, err)
	}
	defer f.Close()

	x := &xlsxReader{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		x.date1904 = *props.Date1904
	}

	wb := New()
	for _, name := range f.GetSheetList() {
		sheet, err := x.readSheet(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrWorkbookLoad, name, err)
		}
		wb.add(sheet)
	}
	return wb, nil
}

type xlsxReader struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func (x *xlsxReader) readSheet(name string) (*Sheet, error) {
	rows, err := x.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Name: name}
	if len(rows) == 0 {
		return sheet, nil
	}

	headers, cols := headerIndex(rows[0])
	sheet.Headers = headers

	for i := 1; i < len(rows); i++ {
		row := make(models.Row, len(headers))
		for _, h := range headers {
			row[h] = models.Null()
		}

		for col, raw := range rows[i] {
			h, ok := cols[col]
			if !ok || raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				return nil, err
			}
			v, err := x.cellValue(name, cell, raw)
			if err != nil {
				return nil, err
			}
			row[h] = v
		}

		if !isEmptyRow(row) {
			sheet.Rows = append(sheet.Rows, row)
		}
	}

	return sheet, nil
}

// cellValue types a raw cell using the stored cell type and number format
func (x *xlsxReader) cellValue(sheet, cell, raw string) (models.Value, error) {
	typ, err := x.f.GetCellType(sheet, cell)
	if err != nil {
		return models.Null(), err
	}

	switch typ {
	case excelize.CellTypeBool:
		return models.Bool(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return models.Text(raw), nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return models.Date(t), nil
		}
		return models.Text(raw), nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.Text(raw), nil
	}

	isDate, err := x.isDateStyled(sheet, cell)
	if err != nil {
		return models.Null(), err
	}
	if isDate {
		if t, err := excelize.ExcelDateToTime(n, x.date1904); err == nil {
			return models.Date(t), nil
		}
	}
	return models.Number(n), nil
}

func (x *xlsxReader) isDateStyled(sheet, cell string) (bool, error) {
	styleID, err := x.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	if isDate, ok := x.dateStyles[styleID]; ok {
		return isDate, nil
	}

	isDate := false
	if styleID != 0 {
		style, err := x.f.GetStyle(styleID)
		if err != nil {
			return false, err
		}
		isDate = isBuiltinDateFormat(style.NumFmt)
		if !isDate && style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	x.dateStyles[styleID] = isDate
	return isDate, nil
}

// isBuiltinDateFormat matches the built-in date and time number formats
func isBuiltinDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDateFormatCode looks for date or time tokens outside quoted literals,
// escapes and bracketed sections such as colors or locales.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
			}
		case inBracket:
			if c == ']' {
				inBracket = false
			}
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			switch c {
			case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
				return true
			}
		}
	}
	return false
}
