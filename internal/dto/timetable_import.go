package dto

import (
	"time"

	"github.com/classtrack/classtrack-api/internal/models"
)

// Import columns, in file order.
const (
	ImportColumnDayOfWeek = "day_of_week"
	ImportColumnStartTime = "start_time"
	ImportColumnEndTime   = "end_time"
	ImportColumnRoom      = "room"
	ImportColumnBranch    = "branch"
	ImportColumnClassName = "class_name"
	ImportColumnSubject   = "subject"
)

// ImportColumns lists the header expected in timetable files.
var ImportColumns = []string{
	ImportColumnDayOfWeek,
	ImportColumnStartTime,
	ImportColumnEndTime,
	ImportColumnRoom,
	ImportColumnBranch,
	ImportColumnClassName,
	ImportColumnSubject,
}

// Issue codes attached to rejected rows.
const (
	IssueInvalidField   = "INVALID_FIELD"
	IssueBranchMismatch = "BRANCH_MISMATCH"
	IssueUnknownRoom    = "UNKNOWN_ROOM"
	IssueTimeOrder      = "TIME_ORDER"
)

// ImportIssue explains why a row was rejected.
type ImportIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportRowResult is the decision for one data row. Line is the 1-based row number in the
// uploaded file, header and blank rows included.
type ImportRowResult struct {
	Line     int               `json:"line"`
	Values   map[string]string `json:"values"`
	Accepted bool              `json:"accepted"`
	RoomID   string            `json:"room_id,omitempty"`
	Issues   []ImportIssue     `json:"issues,omitempty"`
}

// ImportPreview is the full review of an uploaded file.
type ImportPreview struct {
	ImportID      string                 `json:"import_id,omitempty"`
	Filename      string                 `json:"filename,omitempty"`
	Rows          []ImportRowResult      `json:"rows"`
	Accepted      []models.TimetableSlot `json:"accepted"`
	AcceptedCount int                    `json:"accepted_count"`
	RejectedCount int                    `json:"rejected_count"`
	ExpiresAt     *time.Time             `json:"expires_at,omitempty"`
}

// CommitImportRequest confirms a stored preview.
type CommitImportRequest struct {
	SkipRejected bool `json:"skip_rejected"`
}

// CommitImportResult reports how many slots the commit wrote.
type CommitImportResult struct {
	ImportID string `json:"import_id"`
	Inserted int64  `json:"inserted"`
	Skipped  int    `json:"skipped"`
}
