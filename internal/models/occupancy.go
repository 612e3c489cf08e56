package models

import "time"

// OccupancyStatus is the state a room is asserted to be in during a window.
type OccupancyStatus string

const (
	StatusVacant   OccupancyStatus = "vacant"
	StatusOccupied OccupancyStatus = "occupied"
	StatusReserved OccupancyStatus = "reserved"
)

// OccupancyWindow asserts a room's status during [StartTime, EndTime).
type OccupancyWindow struct {
	ID          string          `db:"id" json:"id"`
	ClassroomID string          `db:"classroom_id" json:"classroom_id"`
	Branch      Branch          `db:"branch" json:"branch"`
	Status      OccupancyStatus `db:"status" json:"status"`
	ClassName   string          `db:"class_name" json:"class_name"`
	Subject     *string         `db:"subject" json:"subject,omitempty"`
	Purpose     *string         `db:"purpose" json:"purpose,omitempty"`
	StartTime   time.Time       `db:"start_time" json:"start_time"`
	EndTime     time.Time       `db:"end_time" json:"end_time"`
	OccupiedBy  *string         `db:"occupied_by" json:"occupied_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ActiveAt reports whether the window covers the instant t.
func (w OccupancyWindow) ActiveAt(t time.Time) bool {
	return !w.StartTime.After(t) && t.Before(w.EndTime)
}
