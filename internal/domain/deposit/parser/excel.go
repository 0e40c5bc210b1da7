package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the first worksheet of a modern Excel file.
func parseXLSX(data []byte) (*ParsedTable, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMissingHeaderRow
	}

	rawRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheets[0], err)
	}

	return tableFromRawRows(rawRows)
}

// parseXLS reads the first sheet of a legacy BIFF Excel file.
func parseXLS(data []byte) (*ParsedTable, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLS file: %w", err)
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, ErrMissingHeaderRow
	}

	var rawRows [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, col := range row.GetCols() {
			cells = append(cells, col.GetString())
		}
		rawRows = append(rawRows, cells)
	}

	return tableFromRawRows(rawRows)
}

// tableFromRawRows applies the shared header-row rule: blank rows are
// filtered, the first remaining row becomes the headers.
func tableFromRawRows(rawRows [][]string) (*ParsedTable, error) {
	var headers []string
	var rows [][]string
	for _, row := range rawRows {
		if isBlankRow(row) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(row))
			for i, cell := range row {
				headers[i] = strings.TrimSpace(cell)
			}
			continue
		}
		rows = append(rows, row)
	}

	if headers == nil {
		return nil, ErrMissingHeaderRow
	}
	return newTable(headers, rows), nil
}
