// Package workbook materializes spreadsheet files into named sheets of rows
// keyed by header.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/workbook-validation-api/internal/coerce"
	"github.com/workbook-validation-api/internal/models"
)

var (
	// ErrWorkbookLoad is returned when a workbook cannot be read or decoded
	ErrWorkbookLoad = errors.New("workbook load failed")
	// ErrUnsupportedFormat is returned for file extensions with no reader
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
)

// Sheet is one materialized sheet. Headers come from row 1, Rows hold every
// non-empty data row in physical order.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []models.Row
}

// Workbook is an in-memory set of sheets
type Workbook struct {
	sheets map[string]*Sheet
	order  []string
}

// New builds a workbook from sheets, keeping their order
func New(sheets ...*Sheet) *Workbook {
	w := &Workbook{sheets: make(map[string]*Sheet, len(sheets))}
	for _, s := range sheets {
		w.add(s)
	}
	return w
}

// FromRows builds a workbook from a name-to-sheet mapping. Sheets are ordered
// by name; a sheet without headers gets the union of its row keys.
func FromRows(sheets map[string]*Sheet) *Workbook {
	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	w := &Workbook{sheets: make(map[string]*Sheet, len(sheets))}
	for _, name := range names {
		s := sheets[name]
		if s == nil {
			continue
		}
		if s.Name == "" {
			s.Name = name
		}
		if s.Headers == nil {
			s.Headers = headersOf(s.Rows)
		}
		w.add(s)
	}
	return w
}

// NewSheet builds a sheet, dropping rows whose cells are all blank
func NewSheet(name string, headers []string, rows []models.Row) *Sheet {
	s := &Sheet{Name: name, Headers: headers}
	for _, r := range rows {
		if !isEmptyRow(r) {
			s.Rows = append(s.Rows, r)
		}
	}
	return s
}

func (w *Workbook) add(s *Sheet) {
	if _, exists := w.sheets[s.Name]; !exists {
		w.order = append(w.order, s.Name)
	}
	w.sheets[s.Name] = s
}

// Sheet returns the named sheet, or false when the workbook has no such sheet
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	s, ok := w.sheets[name]
	return s, ok
}

// SheetNames lists sheet names in workbook order
func (w *Workbook) SheetNames() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// RowCount is the total number of data rows across all sheets
func (w *Workbook) RowCount() int {
	n := 0
	for _, s := range w.sheets {
		n += len(s.Rows)
	}
	return n
}

// Open reads a workbook file, choosing the reader from the file extension
func Open(path string) (*Workbook, error) {
	if _, err := formatOf(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkbookLoad, err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read decodes a workbook from r. The name is only used to pick the format
// and, for CSV, the sheet name.
func Read(r io.Reader, name string) (*Workbook, error) {
	format, err := formatOf(name)
	if err != nil {
		return nil, err
	}

	switch format {
	case formatCSV:
		return readCSV(r, sheetNameFromPath(name))
	default:
		return readXLSX(r)
	}
}

type format int

const (
	formatXLSX format = iota
	formatCSV
)

func formatOf(name string) (format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return formatXLSX, nil
	case ".csv":
		return formatCSV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// SupportedExtension reports whether a file name has a readable extension
func SupportedExtension(name string) bool {
	_, err := formatOf(name)
	return err == nil
}

func sheetNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isEmptyRow(r models.Row) bool {
	for _, v := range r {
		if !coerce.IsBlank(v) {
			return false
		}
	}
	return true
}

func headersOf(rows []models.Row) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		for h := range r {
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	sort.Strings(out)
	return out
}

// headerIndex trims header cells and keeps the first column for each name
func headerIndex(cells []string) ([]string, map[int]string) {
	var headers []string
	cols := make(map[int]string)
	seen := make(map[string]bool)
	for i, cell := range cells {
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		h := strings.TrimSpace(cell)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		headers = append(headers, h)
		cols[i] = h
	}
	return headers, cols
}
