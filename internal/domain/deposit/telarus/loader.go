package telarus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/header"
)

// Master file format errors.
var (
	ErrNoBlocks  = errors.New("reference master file has no common fields or template fields block")
	ErrEmptyFile = errors.New("reference master file is empty")
)

// Block marker rows in the master file. Each marker is followed by that
// block's own column header row.
const (
	markerCommonFields   = "common fields"
	markerTemplateFields = "template fields"
)

// Load reads the master reference CSV from disk and builds the matcher.
func Load(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference master file: %w", err)
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader parses the two-block master layout: a "Common Fields" marker
// row, its column header row and origin-scoped rows, then a "Template
// Fields" marker row, its column header row and per-company rows. Rows are
// grouped by normalized origin and, within template rows, by normalized
// company.
func LoadReader(r io.Reader) (*Matcher, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read reference master file: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	m := &Matcher{origins: make(map[string]*originGroup)}

	var (
		inCommon   bool
		inTemplate bool
		cols       map[string]int
		sawBlock   bool
	)
	for _, record := range records {
		if rowIsBlank(record) {
			continue
		}
		switch header.Normalize(record[0]) {
		case markerCommonFields:
			inCommon, inTemplate, cols, sawBlock = true, false, nil, true
			continue
		case markerTemplateFields:
			inCommon, inTemplate, cols, sawBlock = false, true, nil, true
			continue
		}
		if !inCommon && !inTemplate {
			continue
		}
		if cols == nil {
			cols = indexColumns(record)
			continue
		}

		row := referenceRow{
			origin:          cell(record, cols, "origin"),
			company:         cell(record, cols, "company"),
			templateMapName: cell(record, cols, "template map name"),
			templateID:      cell(record, cols, "template id"),
			headerName:      cell(record, cols, "telarus header name"),
			label:           cell(record, cols, "field label"),
			fieldID:         cell(record, cols, "field id"),
			commissionType:  cell(record, cols, "commission type"),
			common:          inCommon,
		}
		if row.origin == "" {
			continue
		}
		m.add(row)
	}

	if !sawBlock {
		return nil, ErrNoBlocks
	}
	return m, nil
}

func (m *Matcher) add(row referenceRow) {
	originKey := header.Normalize(row.origin)
	origin, ok := m.origins[originKey]
	if !ok {
		origin = &originGroup{name: row.origin, companies: make(map[string]*companyGroup)}
		m.origins[originKey] = origin
	}

	if row.common {
		origin.common = append(origin.common, row)
		return
	}

	companyKey := header.Normalize(row.company)
	if companyKey == "" {
		return
	}
	company, ok := origin.companies[companyKey]
	if !ok {
		company = &companyGroup{name: row.company}
		origin.companies[companyKey] = company
	}
	company.rows = append(company.rows, row)
}

// indexColumns maps a block's column header row to field positions by
// normalized name so column order in the master file is not load-bearing.
func indexColumns(record []string) map[string]int {
	cols := make(map[string]int, len(record))
	for i, name := range record {
		key := header.Normalize(name)
		if key == "" {
			continue
		}
		if _, taken := cols[key]; !taken {
			cols[key] = i
		}
	}
	return cols
}

func cell(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func rowIsBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
