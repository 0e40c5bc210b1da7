package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType is returned for any file that is not one of the
	// three supported categories.
	ErrUnsupportedType = errors.New("unsupported file type: upload a CSV, Excel (.xls/.xlsx), or PDF report")
	// ErrEmptyFile is returned when the byte stream is empty or unreadable.
	ErrEmptyFile = errors.New("file is empty or unreadable")
	// ErrMissingHeaderRow is returned when no non-empty row could serve as
	// the header row.
	ErrMissingHeaderRow = errors.New("missing header row")
)

// Parse reconstructs a table from raw file bytes. The file type is decided
// by MIME type first, then file extension. Format errors abort the whole
// parse; nothing partial is returned.
func Parse(data []byte, fileName, mimeType string) (*ParsedTable, error) {
	return Options{}.Parse(data, fileName, mimeType)
}

// Parse dispatches to the format-specific parser.
func (o Options) Parse(data []byte, fileName, mimeType string) (*ParsedTable, error) {
	switch DetectKind(fileName, mimeType) {
	case KindCSV:
		return parseCSV(data)
	case KindXLSX:
		return parseXLSX(data)
	case KindXLS:
		return parseXLS(data)
	case KindPDF:
		return o.withDefaults().parsePDF(data)
	default:
		return nil, ErrUnsupportedType
	}
}

// Kind identifies the detected file format of an upload.
type Kind int

const (
	KindUnknown Kind = iota
	KindCSV
	KindXLSX
	KindXLS
	KindPDF
)

// DetectKind decides the file format, MIME type first, then extension.
func DetectKind(fileName, mimeType string) Kind {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "text/csv", "application/csv":
		return KindCSV
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return KindXLSX
	case "application/vnd.ms-excel":
		return KindXLS
	case "application/pdf":
		return KindPDF
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".tsv":
		return KindCSV
	case ".xlsx":
		return KindXLSX
	case ".xls":
		return KindXLS
	case ".pdf":
		return KindPDF
	}
	return KindUnknown
}

// parseCSV reads a delimited file. Leading blank lines and blank lines
// between data rows are skipped greedily; the first non-empty row becomes
// the header row.
func parseCSV(data []byte) (*ParsedTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrMissingHeaderRow
	}

	decoded := normalizeEncoding(data)

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = sniffDelimiter(decoded)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var headers []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if isBlankRow(record) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(record))
			for i, cell := range record {
				headers[i] = strings.TrimSpace(cell)
			}
			continue
		}
		rows = append(rows, record)
	}

	if headers == nil {
		return nil, ErrMissingHeaderRow
	}
	return newTable(headers, rows), nil
}

// sniffDelimiter picks the delimiter that splits the first non-empty line
// into the most fields.
func sniffDelimiter(data []byte) rune {
	line := firstContentLine(data)
	best := ','
	bestCount := 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		count := strings.Count(line, string(d))
		if count > bestCount {
			best = d
			bestCount = count
		}
	}
	return best
}

func firstContentLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func trimCell(cell string) string {
	return strings.TrimSpace(cell)
}
