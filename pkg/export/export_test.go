package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() Dataset {
	return Dataset{
		Title:   "CSE timetable",
		Headers: []string{"day", "room"},
		Rows: []map[string]string{
			{"day": "Monday", "room": "101"},
			{"day": "Tuesday", "room": "Lab-2", "ignored": "x"},
		},
	}
}

func TestCSVExporterWritesHeaderOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(sample())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"day", "room"}, {"Monday", "101"}, {"Tuesday", "Lab-2"}}, records)
}

func TestXLSXExporterRoundTrip(t *testing.T) {
	out, err := NewXLSXExporter().Render(sample())
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{"CSE timetable"}, file.GetSheetList())
	rows, err := file.GetRows("CSE timetable")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"day", "room"}, {"Monday", "101"}, {"Tuesday", "Lab-2"}}, rows)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	for _, r := range []Renderer{NewCSVExporter(), NewPDFExporter(), NewXLSXExporter()} {
		_, err := r.Render(Dataset{})
		assert.Error(t, err, r.Extension())
	}
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", sheetName(""))
	assert.Equal(t, "CSE 2026", sheetName("CSE [2026]"))
	assert.Len(t, []rune(sheetName("a very long timetable title that overflows")), maxSheetName)
}
