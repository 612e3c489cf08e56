package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/tabular"
	"github.com/classtrack/classtrack-api/pkg/validation"
)

var importValidator = validation.New()

type importRowInput struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
	Room      string `json:"room" validate:"required"`
	Branch    string `json:"branch" validate:"required,branch"`
	ClassName string `json:"class_name" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
}

// ValidateImport decides, row by row, which records of a timetable file can be inserted
// for callerBranch. It has no side effects: identical inputs give identical decisions.
// Accepted slots carry the resolved room, seconds appended to both times and the
// caller's branch regardless of the branch written in the row.
func ValidateImport(records []tabular.Record, rooms []models.Room, callerBranch models.Branch) dto.ImportPreview {
	roomIndex := make(map[string]string, len(rooms))
	for _, room := range rooms {
		roomIndex[normalizeRoom(room.RoomNumber)] = room.ID
	}

	preview := dto.ImportPreview{
		Rows:     make([]dto.ImportRowResult, 0, len(records)),
		Accepted: []models.TimetableSlot{},
	}

	for _, record := range records {
		row := dto.ImportRowResult{Line: record.Line, Values: importValues(record)}
		input := importRowInput{
			DayOfWeek: row.Values[dto.ImportColumnDayOfWeek],
			StartTime: row.Values[dto.ImportColumnStartTime],
			EndTime:   row.Values[dto.ImportColumnEndTime],
			Room:      row.Values[dto.ImportColumnRoom],
			Branch:    row.Values[dto.ImportColumnBranch],
			ClassName: row.Values[dto.ImportColumnClassName],
			Subject:   row.Values[dto.ImportColumnSubject],
		}

		day, issues := structuralIssues(input)
		if len(issues) > 0 {
			row.Issues = issues
			preview.Rows = append(preview.Rows, row)
			preview.RejectedCount++
			continue
		}

		if models.Branch(input.Branch) != callerBranch {
			row.Issues = append(row.Issues, dto.ImportIssue{
				Code:    dto.IssueBranchMismatch,
				Field:   dto.ImportColumnBranch,
				Message: fmt.Sprintf("branch mismatch: %s (expected %s)", input.Branch, callerBranch),
			})
		}
		roomID, found := roomIndex[normalizeRoom(input.Room)]
		if found {
			row.RoomID = roomID
		} else {
			row.Issues = append(row.Issues, dto.ImportIssue{
				Code:    dto.IssueUnknownRoom,
				Field:   dto.ImportColumnRoom,
				Message: fmt.Sprintf("unknown room: %s", input.Room),
			})
		}
		// Zero-padded HH:MM compares correctly as text.
		if input.StartTime >= input.EndTime {
			row.Issues = append(row.Issues, dto.ImportIssue{
				Code:    dto.IssueTimeOrder,
				Field:   dto.ImportColumnStartTime,
				Message: "start must precede end",
			})
		}

		row.Accepted = len(row.Issues) == 0 && found
		if row.Accepted {
			preview.AcceptedCount++
			preview.Accepted = append(preview.Accepted, models.TimetableSlot{
				ClassroomID: roomID,
				Branch:      callerBranch,
				DayOfWeek:   day,
				StartTime:   withSeconds(input.StartTime),
				EndTime:     withSeconds(input.EndTime),
				ClassName:   input.ClassName,
				Subject:     input.Subject,
			})
		} else {
			preview.RejectedCount++
		}
		preview.Rows = append(preview.Rows, row)
	}

	return preview
}

func structuralIssues(input importRowInput) (int, []dto.ImportIssue) {
	var issues []dto.ImportIssue
	if err := importValidator.Struct(input); err != nil {
		for _, msg := range validation.Messages(err) {
			field, _, _ := strings.Cut(msg, " ")
			issues = append(issues, dto.ImportIssue{Code: dto.IssueInvalidField, Field: field, Message: msg})
		}
	}

	day := -1
	if input.DayOfWeek != "" {
		parsed, err := strconv.Atoi(input.DayOfWeek)
		if err != nil || parsed < 0 || parsed > 6 {
			issues = append(issues, dto.ImportIssue{
				Code:    dto.IssueInvalidField,
				Field:   dto.ImportColumnDayOfWeek,
				Message: "day_of_week must be an integer between 0 and 6",
			})
		} else {
			day = parsed
		}
	}
	return day, issues
}

// importValues keeps only the known columns so the preview echoes what was validated.
func importValues(record tabular.Record) map[string]string {
	values := make(map[string]string, len(dto.ImportColumns))
	for _, column := range dto.ImportColumns {
		values[column] = strings.TrimSpace(record.Get(column))
	}
	return values
}

func normalizeRoom(number string) string {
	return strings.ToLower(strings.TrimSpace(number))
}
