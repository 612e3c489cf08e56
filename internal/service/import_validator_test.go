package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/tabular"
)

var importRooms = []models.Room{{ID: "room-101", RoomNumber: "101"}, {ID: "room-lab", RoomNumber: "Lab-2"}}

func validRecord() tabular.Record {
	return tabular.Record{Line: 2, Values: map[string]string{
		"day_of_week": "1",
		"start_time":  "09:00",
		"end_time":    "10:00",
		"room":        "101",
		"branch":      "CSE",
		"class_name":  "CSE A",
		"subject":     "Math",
	}}
}

func issueCodes(row dto.ImportRowResult) []string {
	codes := make([]string, 0, len(row.Issues))
	for _, issue := range row.Issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

func TestValidateImportAcceptsValidRow(t *testing.T) {
	preview := ValidateImport([]tabular.Record{validRecord()}, importRooms, models.BranchCSE)

	require.Len(t, preview.Rows, 1)
	row := preview.Rows[0]
	assert.True(t, row.Accepted)
	assert.Equal(t, "room-101", row.RoomID)
	assert.Equal(t, 1, preview.AcceptedCount)
	require.Len(t, preview.Accepted, 1)
	assert.Equal(t, models.TimetableSlot{
		ClassroomID: "room-101",
		Branch:      models.BranchCSE,
		DayOfWeek:   1,
		StartTime:   "09:00:00",
		EndTime:     "10:00:00",
		ClassName:   "CSE A",
		Subject:     "Math",
	}, preview.Accepted[0])
}

func TestValidateImportBranchMismatchOnly(t *testing.T) {
	record := validRecord()
	record.Values["branch"] = "ECE"

	preview := ValidateImport([]tabular.Record{record}, importRooms, models.BranchCSE)
	row := preview.Rows[0]
	assert.False(t, row.Accepted)
	assert.Equal(t, []string{dto.IssueBranchMismatch}, issueCodes(row))
	assert.Equal(t, "room-101", row.RoomID)
	assert.Empty(t, preview.Accepted)
	assert.Equal(t, 1, preview.RejectedCount)
}

func TestValidateImportEqualTimesRejected(t *testing.T) {
	record := validRecord()
	record.Values["end_time"] = "09:00"

	row := ValidateImport([]tabular.Record{record}, importRooms, models.BranchCSE).Rows[0]
	assert.False(t, row.Accepted)
	assert.Contains(t, issueCodes(row), dto.IssueTimeOrder)
	assert.Equal(t, "start must precede end", row.Issues[0].Message)
}

func TestValidateImportUnknownRoomNeverAccepted(t *testing.T) {
	record := validRecord()
	record.Values["room"] = "999"

	preview := ValidateImport([]tabular.Record{record}, importRooms, models.BranchCSE)
	assert.Equal(t, []string{dto.IssueUnknownRoom}, issueCodes(preview.Rows[0]))
	assert.Empty(t, preview.Accepted)
}

func TestValidateImportRoomMatchIsCaseInsensitive(t *testing.T) {
	record := validRecord()
	record.Values["room"] = "  lab-2 "

	preview := ValidateImport([]tabular.Record{record}, importRooms, models.BranchCSE)
	require.Len(t, preview.Accepted, 1)
	assert.Equal(t, "room-lab", preview.Accepted[0].ClassroomID)
}

func TestValidateImportAccumulatesSemanticIssues(t *testing.T) {
	record := validRecord()
	record.Values["branch"] = "IT"
	record.Values["room"] = "404"
	record.Values["start_time"] = "11:00"

	row := ValidateImport([]tabular.Record{record}, importRooms, models.BranchCSE).Rows[0]
	assert.Equal(t, []string{dto.IssueBranchMismatch, dto.IssueUnknownRoom, dto.IssueTimeOrder}, issueCodes(row))
}

func TestValidateImportStructuralFailuresSkipSemanticChecks(t *testing.T) {
	record := validRecord()
	record.Values["day_of_week"] = "7"
	record.Values["start_time"] = "9:00"
	record.Values["branch"] = "BIO"
	record.Values["room"] = "999"
	delete(record.Values, "subject")

	row := ValidateImport([]tabular.Record{record}, importRooms, models.BranchCSE).Rows[0]
	assert.False(t, row.Accepted)
	for _, issue := range row.Issues {
		assert.Equal(t, dto.IssueInvalidField, issue.Code)
	}
	fields := map[string]bool{}
	for _, issue := range row.Issues {
		fields[issue.Field] = true
	}
	assert.Equal(t, map[string]bool{"day_of_week": true, "start_time": true, "branch": true, "subject": true}, fields)
	assert.Empty(t, row.RoomID)
}

func TestValidateImportRejectsNonNumericDay(t *testing.T) {
	record := validRecord()
	record.Values["day_of_week"] = "Mon"

	row := ValidateImport([]tabular.Record{record}, importRooms, models.BranchCSE).Rows[0]
	require.Len(t, row.Issues, 1)
	assert.Equal(t, "day_of_week", row.Issues[0].Field)
}

func TestValidateImportIsDeterministic(t *testing.T) {
	mismatch := validRecord()
	mismatch.Values["branch"] = "EEE"
	mismatch.Line = 3
	records := []tabular.Record{validRecord(), mismatch, {Line: 4, Values: map[string]string{"day_of_week": "x"}}}

	first := ValidateImport(records, importRooms, models.BranchCSE)
	second := ValidateImport(records, importRooms, models.BranchCSE)
	assert.Equal(t, first, second)
}

func TestValidateImportReportsFileLines(t *testing.T) {
	input := "day_of_week,start_time,end_time,room,branch,class_name,subject\n" +
		"1,09:00,10:00,101,CSE,CSE A,Math\n" +
		"\n" +
		"\n" +
		"8,09:00,10:00,101,CSE,CSE A,Math\n"
	records, err := tabular.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	preview := ValidateImport(records, importRooms, models.BranchCSE)
	require.Len(t, preview.Rows, 2)
	assert.Equal(t, 2, preview.Rows[0].Line)
	assert.Equal(t, 5, preview.Rows[1].Line)
	assert.False(t, preview.Rows[1].Accepted)
}
