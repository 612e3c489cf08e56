package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/tabular"
)

func newTestExportService() *ExportService {
	slots := &memoryTimetable{slots: []models.TimetableSlot{
		{ID: "s1", ClassroomID: "room-101", Branch: models.BranchCSE, DayOfWeek: 1, StartTime: "09:00:00", EndTime: "10:00:00", ClassName: "CSE A", Subject: "Math"},
		{ID: "s2", ClassroomID: "room-lab", Branch: models.BranchECE, DayOfWeek: 2, StartTime: "11:00:00", EndTime: "12:00:00", ClassName: "ECE A", Subject: "Circuits"},
	}}
	svc := NewExportService(slots, &roomsStub{rooms: importRooms}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportCSVIsReimportable(t *testing.T) {
	svc := newTestExportService()

	file, err := svc.Timetable(context.Background(), crActor(models.BranchCSE), dto.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "timetable-cse-20260302.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"day_of_week", "start_time", "end_time", "room", "branch", "class_name", "subject"},
		{"1", "09:00", "10:00", "101", "CSE", "CSE A", "Math"},
	}, records)

	rows, err := tabular.Read(file.Filename, bytes.NewReader(file.Content))
	require.NoError(t, err)
	preview := ValidateImport(rows, importRooms, models.BranchCSE)
	assert.Equal(t, 1, preview.AcceptedCount)
}

func TestExportXLSXAndPDF(t *testing.T) {
	svc := newTestExportService()

	xlsx, err := svc.Timetable(context.Background(), crActor(models.BranchCSE), dto.ExportFormatXLSX)
	require.NoError(t, err)
	rows, err := tabular.Read(xlsx.Filename, bytes.NewReader(xlsx.Content))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "101", rows[0].Get("room"))

	pdf, err := svc.Timetable(context.Background(), crActor(models.BranchCSE), dto.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Content, []byte("%PDF")))
}

func TestExportRejectsUnknownFormatAndStudents(t *testing.T) {
	svc := newTestExportService()

	_, err := svc.Timetable(context.Background(), crActor(models.BranchCSE), dto.ExportFormat("docx"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Timetable(context.Background(), studentActor(models.BranchCSE), dto.ExportFormatCSV)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
