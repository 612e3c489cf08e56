package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSVTrimsAndSkipsBlankRows(t *testing.T) {
	input := "\ufeffday_of_week, start_time ,end_time,room\n" +
		"1, 09:00 ,10:00,101\n" +
		"\n" +
		",,,\n" +
		"2,11:00\n"

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{Line: 2, Values: map[string]string{"day_of_week": "1", "start_time": "09:00", "end_time": "10:00", "room": "101"}}, records[0])
	assert.Equal(t, 5, records[1].Line)
	assert.Equal(t, "", records[1].Get("end_time"))
	assert.Equal(t, "", records[1].Get("room"))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestReadXLSXFirstSheet(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]interface{}{"day_of_week", "start_time", "room"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]interface{}{"3", " 14:00", "B-12 "}))
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	records, err := ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "14:00", records[0].Get("start_time"))
	assert.Equal(t, "B-12", records[0].Get("room"))
	assert.Equal(t, 2, records[0].Line)
}

func TestLinesCountBlankRows(t *testing.T) {
	input := "\n" +
		"day_of_week,room\n" +
		"1,101\n" +
		"\n" +
		"\n" +
		"9,999\n"

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []int{3, 6}, []int{records[0].Line, records[1].Line})

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]interface{}{"day_of_week", "room"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]interface{}{"1", "101"}))
	require.NoError(t, book.SetSheetRow(sheet, "A5", &[]interface{}{"9", "999"}))
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	records, err = ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []int{2, 5}, []int{records[0].Line, records[1].Line})
}

func TestReadDispatchesOnExtension(t *testing.T) {
	records, err := Read("slots.CSV", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = Read("slots.ods", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
