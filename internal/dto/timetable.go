package dto

import "github.com/classtrack/classtrack-api/internal/models"

// CreateTimetableSlotRequest adds one weekly slot for the caller's branch.
type CreateTimetableSlotRequest struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required,hhmm"`
	EndTime     string `json:"end_time" validate:"required,hhmm"`
	ClassroomID string `json:"classroom_id" validate:"required"`
	ClassName   string `json:"class_name" validate:"required,max=120"`
	Subject     string `json:"subject" validate:"required,max=120"`
}

// SyncOutcome is the result of projecting one slot onto today's occupancy.
type SyncOutcome struct {
	SlotID      string `json:"slot_id"`
	ClassroomID string `json:"classroom_id"`
	ClassName   string `json:"class_name"`
	Succeeded   bool   `json:"succeeded"`
	WindowID    string `json:"window_id,omitempty"`
	Truncated   int64  `json:"truncated,omitempty"`
	Removed     int64  `json:"removed,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SyncResult aggregates per-slot outcomes. Partial success is reported, not raised.
type SyncResult struct {
	Date      string        `json:"date"`
	Branch    models.Branch `json:"branch"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []SyncOutcome `json:"outcomes"`
}
