package workbook

import (
	"regexp"
	"sort"
	"strconv"
)

// DefaultProbeRows bounds how deep a content probe scans into a sheet.
// Meaningful headers sit in the leading rows; anything deeper is data.
const DefaultProbeRows = 20

// Location is the resolved position of a table inside a workbook.
type Location struct {
	Sheet string
	Row   int
	Col   int
}

// Rule is a locator strategy over sheet names and cell content. The three
// variants cover every publication layout seen so far; a new layout becomes
// a new variant, not a special case inside an extractor.
type Rule interface {
	locate(w *Workbook) *Location
}

// ByNamePattern selects a sheet whose name matches a pattern. When several
// match, the lexicographically last wins: publication names embed a 4-digit
// year, so last means most recent.
type ByNamePattern struct {
	Pattern *regexp.Regexp
}

func (r ByNamePattern) locate(w *Workbook) *Location {
	var matches []string
	for _, s := range w.Sheets {
		if r.Pattern.MatchString(s.Name) {
			matches = append(matches, s.Name)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)
	return &Location{Sheet: matches[len(matches)-1]}
}

// ByContentProbe scans a bounded window of leading rows in every sheet for
// a cell matching a pattern: a literal header phrase, or an identifier
// token shape marking "this column holds the join key".
type ByContentProbe struct {
	Pattern *regexp.Regexp
	// MaxRows bounds the scan depth; 0 means DefaultProbeRows.
	MaxRows int
}

func (r ByContentProbe) locate(w *Workbook) *Location {
	for i := range w.Sheets {
		if row, col, ok := ProbeSheet(&w.Sheets[i], r.Pattern, r.MaxRows); ok {
			return &Location{Sheet: w.Sheets[i].Name, Row: row, Col: col}
		}
	}
	return nil
}

// ByFixedOffset pins a location outright, for layouts stable enough to
// hard-code.
type ByFixedOffset struct {
	Sheet string
	Row   int
	Col   int
}

func (r ByFixedOffset) locate(w *Workbook) *Location {
	if w.Sheet(r.Sheet) == nil {
		return nil
	}
	return &Location{Sheet: r.Sheet, Row: r.Row, Col: r.Col}
}

// Locate resolves a rule against a workbook. A nil result means "this table
// is not in this workbook"; callers treat that as the enrichment being
// unavailable and continue. Locate never fails.
func Locate(w *Workbook, rule Rule) *Location {
	if w == nil || rule == nil {
		return nil
	}
	return rule.locate(w)
}

// ProbeSheet scans up to maxRows leading rows of one sheet, full width, for
// a cell matching the pattern. Returns the first match in reading order.
func ProbeSheet(s *Sheet, pattern *regexp.Regexp, maxRows int) (row, col int, ok bool) {
	if maxRows <= 0 {
		maxRows = DefaultProbeRows
	}
	limit := s.RowCount()
	if limit > maxRows {
		limit = maxRows
	}
	for r := 0; r < limit; r++ {
		for c := range s.Rows[r] {
			if pattern.MatchString(s.Cell(r, c)) {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// FindYearRow stitches the second of two stacked header rows: given the row
// holding the identifier-label header, it scans a small window of
// subsequent rows for the row carrying the per-year column axis. It returns
// that row's index and the column of each year found. The data region
// starts immediately after the returned row.
func FindYearRow(s *Sheet, afterRow, window int, years []int) (yearRow int, yearCols map[int]int, ok bool) {
	for r := afterRow + 1; r <= afterRow+window && r < s.RowCount(); r++ {
		cols := make(map[int]int)
		for c := range s.Rows[r] {
			v, err := strconv.Atoi(s.Cell(r, c))
			if err != nil {
				continue
			}
			for _, y := range years {
				if v == y {
					if _, seen := cols[y]; !seen {
						cols[y] = c
					}
				}
			}
		}
		if len(cols) > 0 {
			return r, cols, true
		}
	}
	return 0, nil, false
}

// FindIdentifierColumn locates a column holding identifier-shaped tokens
// anywhere in the leading window of a sheet, not just column 0. It returns
// the coordinates of the first identifier cell; rows above it are headers.
func FindIdentifierColumn(s *Sheet, maxRows int, isID func(string) bool) (row, col int, ok bool) {
	if maxRows <= 0 {
		maxRows = DefaultProbeRows
	}
	limit := s.RowCount()
	if limit > maxRows {
		limit = maxRows
	}
	for r := 0; r < limit; r++ {
		for c := range s.Rows[r] {
			if isID(s.Cell(r, c)) {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}
