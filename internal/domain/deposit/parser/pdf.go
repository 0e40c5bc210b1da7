package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrEncryptedPDF is returned for password-protected documents.
	ErrEncryptedPDF = errors.New("PDF is password protected: remove the password or export as CSV/Excel")
	// ErrNoTextContent is returned when no text can be extracted, which
	// usually means the pages are scanned images.
	ErrNoTextContent = errors.New("no extractable text in PDF (scanned documents are not supported): export as CSV/Excel")
	// ErrNoTableStructure is returned when no line of text yields at least
	// two cells to act as the header row.
	ErrNoTableStructure = errors.New("no table header detected in PDF: export as CSV/Excel")
	// ErrNoDataRows is returned when a header was found but nothing below it.
	ErrNoDataRows = errors.New("no data rows found below the PDF header row")
)

// Options holds the geometric reconstruction thresholds. The values are
// policy, not physics: they were tuned against vendor commission reports
// and can be overridden per call.
type Options struct {
	// LineTolerance is the vertical distance (PDF units) within which two
	// text fragments belong to the same line.
	LineTolerance float64
	// MinCellGap is the smallest horizontal gap that splits two fragments
	// into separate cells.
	MinCellGap float64
	// GapMedianFactor scales the median in-line gap; the cell-split
	// threshold is the larger of MinCellGap and factor*median.
	GapMedianFactor float64
}

const (
	defaultLineTolerance   = 2.0
	defaultMinCellGap      = 24.0
	defaultGapMedianFactor = 3.0

	// columnEpsilon absorbs sub-unit jitter when deciding whether a
	// fragment starts at or past a column boundary.
	columnEpsilon = 0.5
)

func (o Options) withDefaults() Options {
	if o.LineTolerance <= 0 {
		o.LineTolerance = defaultLineTolerance
	}
	if o.MinCellGap <= 0 {
		o.MinCellGap = defaultMinCellGap
	}
	if o.GapMedianFactor <= 0 {
		o.GapMedianFactor = defaultGapMedianFactor
	}
	return o
}

// fragment is one positioned text run: baseline x/y plus rendered width.
type fragment struct {
	x, y, w float64
	text    string
}

// textCell is a merged run of fragments forming one table cell.
type textCell struct {
	startX float64
	text   string
}

// parsePDF reconstructs a table from positioned text fragments. The PDF
// reader is scoped to this call; no handle outlives it.
func (o Options) parsePDF(data []byte) (*ParsedTable, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if err == pdf.ErrInvalidPassword {
			return nil, ErrEncryptedPDF
		}
		return nil, fmt.Errorf("%w: %v", ErrEmptyFile, err)
	}

	fragments, err := collectFragments(reader)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, ErrNoTextContent
	}

	return o.reconstruct(fragments)
}

// collectFragments reads every page's text runs in page order. Malformed
// content streams make the decoder panic, which is mapped to an error.
func collectFragments(reader *pdf.Reader) (frags [][]fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = fmt.Errorf("%w: %v", ErrNoTextContent, r)
		}
	}()

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		var pageFrags []fragment
		for _, text := range page.Content().Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}
			pageFrags = append(pageFrags, fragment{x: text.X, y: text.Y, w: text.W, text: text.S})
		}
		if len(pageFrags) > 0 {
			frags = append(frags, pageFrags)
		}
	}
	return frags, nil
}

// reconstruct turns per-page fragments into a header row plus data rows.
// The first line yielding at least two cells is the header; its cell start
// positions define the column boundaries for every following line.
func (o Options) reconstruct(pages [][]fragment) (*ParsedTable, error) {
	var lines [][]fragment
	for _, pageFrags := range pages {
		lines = append(lines, o.groupLines(pageFrags)...)
	}

	var headers []string
	var boundaries []float64
	var rows [][]string

	for _, line := range lines {
		cells := o.splitCells(line)

		if headers == nil {
			if len(cells) < 2 {
				continue
			}
			headers = make([]string, len(cells))
			boundaries = make([]float64, len(cells))
			for i, c := range cells {
				headers[i] = c.text
				boundaries[i] = c.startX
			}
			sort.Float64s(boundaries)
			continue
		}

		row := assignColumns(cells, boundaries)
		if isBlankRow(row) {
			continue
		}
		if isRepeatedHeader(row, headers) {
			continue
		}
		rows = append(rows, row)
	}

	if headers == nil {
		return nil, ErrNoTableStructure
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	return newTable(headers, rows), nil
}

// groupLines clusters fragments into lines of text. Fragments are sorted
// top to bottom, left to right; a fragment within LineTolerance of the
// running average baseline joins the current line, which lets the average
// absorb slight baseline drift across a wide row.
func (o Options) groupLines(frags []fragment) [][]fragment {
	sorted := make([]fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].y != sorted[j].y {
			return sorted[i].y > sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var lines [][]fragment
	var current []fragment
	var ySum float64

	for _, frag := range sorted {
		if current == nil {
			current = []fragment{frag}
			ySum = frag.y
			continue
		}
		avg := ySum / float64(len(current))
		if avg-frag.y <= o.LineTolerance && frag.y-avg <= o.LineTolerance {
			current = append(current, frag)
			ySum += frag.y
			continue
		}
		lines = append(lines, sortByX(current))
		current = []fragment{frag}
		ySum = frag.y
	}
	if current != nil {
		lines = append(lines, sortByX(current))
	}
	return lines
}

func sortByX(line []fragment) []fragment {
	sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })
	return line
}

// splitCells merges adjacent fragments of one line into cells. Two
// fragments stay in the same cell when the horizontal gap between them is
// at most the threshold; the threshold adapts to the line's typical
// fragment spacing when enough gaps are observable.
func (o Options) splitCells(line []fragment) []textCell {
	if len(line) == 0 {
		return nil
	}

	gaps := make([]float64, 0, len(line)-1)
	for i := 1; i < len(line); i++ {
		gaps = append(gaps, line[i].x-(line[i-1].x+line[i-1].w))
	}

	threshold := o.MinCellGap
	if len(gaps) >= 4 {
		if scaled := o.GapMedianFactor * median(gaps); scaled > threshold {
			threshold = scaled
		}
	}

	cells := []textCell{{startX: line[0].x, text: line[0].text}}
	for i := 1; i < len(line); i++ {
		gap := line[i].x - (line[i-1].x + line[i-1].w)
		if gap > threshold {
			cells = append(cells, textCell{startX: line[i].x, text: line[i].text})
			continue
		}
		cells[len(cells)-1].text += " " + line[i].text
	}
	return cells
}

// assignColumns places each cell into the column whose boundary it starts
// at or past.
func assignColumns(cells []textCell, boundaries []float64) []string {
	row := make([]string, len(boundaries))
	for _, c := range cells {
		col := 0
		for i, boundary := range boundaries {
			if c.startX >= boundary-columnEpsilon {
				col = i
			}
		}
		if row[col] == "" {
			row[col] = c.text
		} else {
			row[col] += " " + c.text
		}
	}
	return row
}

func isRepeatedHeader(row, headers []string) bool {
	if len(row) != len(headers) {
		return false
	}
	for i := range row {
		if row[i] != headers[i] {
			return false
		}
	}
	return true
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
