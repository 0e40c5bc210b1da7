// Package parser reconstructs a rectangular header/row table from vendor
// deposit reports: CSV, Excel (.xls/.xlsx), and position-based PDF text.
package parser

// ParsedTable is the rectangular output of a parse: a header row plus data
// rows aligned positionally to it. It lives only for the duration of one
// mapping/extraction pass and is never persisted.
type ParsedTable struct {
	Headers []string
	Rows    [][]string
}

// newTable pads or truncates every row to the header width so that
// consumers can index rows by header position without bounds checks.
func newTable(headers []string, rows [][]string) *ParsedTable {
	width := len(headers)
	squared := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == width {
			squared[i] = row
			continue
		}
		cells := make([]string, width)
		copy(cells, row)
		squared[i] = cells
	}
	return &ParsedTable{Headers: headers, Rows: squared}
}

// Cell returns the value at (row, header index), empty when out of range.
func (t *ParsedTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Headers) {
		return ""
	}
	return t.Rows[row][col]
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if trimmed := trimCell(cell); trimmed != "" {
			return false
		}
	}
	return true
}
