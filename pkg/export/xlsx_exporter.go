package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes the header in bold on row 1 followed by one row per record.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := requireHeaders(data, "xlsx"); err != nil {
		return nil, err
	}
	file := excelize.NewFile()
	defer file.Close()

	sheet := sheetName(data.Title)
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	if err := writeRow(file, sheet, 1, data.Headers); err != nil {
		return nil, err
	}
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
		_ = file.SetCellStyle(sheet, "A1", last, style)
	}
	for i, row := range data.Rows {
		if err := writeRow(file, sheet, i+2, data.record(row)); err != nil {
			return nil, err
		}
	}

	buf := &bytes.Buffer{}
	if err := file.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(file *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := file.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write xlsx row %d: %w", row, err)
	}
	return nil
}

func sheetName(title string) string {
	if title == "" {
		return "Sheet1"
	}
	// Excel forbids these characters in sheet names.
	name := []rune{}
	for _, r := range title {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		name = append(name, r)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if len(name) == 0 {
		return "Sheet1"
	}
	return string(name)
}
