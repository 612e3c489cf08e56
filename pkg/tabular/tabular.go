// Package tabular reads header-keyed records from delimited text and spreadsheet files.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Record is one data row keyed by trimmed header name. Line is the 1-based row number
// in the source file, counting the header and any blank rows before it.
type Record struct {
	Line   int
	Values map[string]string
}

// Get returns the value of column name, or "" when the row lacks it.
func (r Record) Get(name string) string {
	return r.Values[name]
}

type sourceRow struct {
	line  int
	cells []string
}

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("tabular: file has no header row")

// ErrUnsupportedFormat is returned by Read for unknown file extensions.
var ErrUnsupportedFormat = errors.New("tabular: unsupported file format")

// Read dispatches on the filename extension.
func Read(filename string, r io.Reader) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadCSV parses comma separated text with a header row. Blank rows are skipped
// and short rows are padded with empty values.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// The csv reader drops empty lines, so line numbers come from the field positions.
	var rows []sourceRow
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tabular: read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, sourceRow{line: line, cells: cells})
	}
	return fromRows(rows)
}

// ReadXLSX parses the first worksheet of a workbook with a header row.
func ReadXLSX(r io.Reader) ([]Record, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("tabular: open xlsx: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("tabular: read sheet %s: %w", sheets[0], err)
	}
	// GetRows keeps empty interior rows, so the index is the sheet row.
	rows := make([]sourceRow, len(cells))
	for i, row := range cells {
		rows[i] = sourceRow{line: i + 1, cells: row}
	}
	return fromRows(rows)
}

func fromRows(rows []sourceRow) ([]Record, error) {
	headerAt := -1
	for i, row := range rows {
		if !blank(row.cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptyFile
	}

	header := make([]string, len(rows[headerAt].cells))
	for i, name := range rows[headerAt].cells {
		header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}

	records := make([]Record, 0, len(rows)-headerAt-1)
	for _, row := range rows[headerAt+1:] {
		if blank(row.cells) {
			continue
		}
		record := Record{Line: row.line, Values: make(map[string]string, len(header))}
		for i, name := range header {
			if name == "" {
				continue
			}
			var value string
			if i < len(row.cells) {
				value = strings.TrimSpace(row.cells[i])
			}
			record.Values[name] = value
		}
		records = append(records, record)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
