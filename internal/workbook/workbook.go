// Package workbook gives the extractors a uniform view of a parsed
// spreadsheet: an ordered collection of named 2-D cell grids, plus the
// locator strategies that find meaningful tables inside grids whose sheet
// names, header positions, and column counts drift between publication
// cycles.
package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one named 2-D cell grid. Rows are ragged exactly as the
// underlying file stores them; use Cell for bounds-tolerant access.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is an ordered collection of sheets.
type Workbook struct {
	Sheets []Sheet
}

// Load parses workbook bytes into the grid representation. Sheets that
// cannot be read are skipped; a file with no readable sheet is an error.
func Load(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}

	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no readable sheets")
	}
	return wb, nil
}

// Sheet returns the sheet with the given name, or nil.
func (w *Workbook) Sheet(name string) *Sheet {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i]
		}
	}
	return nil
}

// SheetNames returns the sheet names in file order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Cell returns the trimmed value at (row, col), or "" when the coordinates
// fall outside the grid. Out-of-range access is expected: published sheets
// pad and truncate rows unpredictably.
func (s *Sheet) Cell(row, col int) string {
	if s == nil || row < 0 || row >= len(s.Rows) {
		return ""
	}
	r := s.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// RowCount returns the number of rows in the sheet.
func (s *Sheet) RowCount() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Width returns the widest row in the sheet.
func (s *Sheet) Width() int {
	if s == nil {
		return 0
	}
	max := 0
	for _, r := range s.Rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}
