package models

import "time"

// TimetableSlot is a weekly recurring class in a room. Times are HH:MM:SS.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Branch      Branch    `db:"branch" json:"branch"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	ClassName   string    `db:"class_name" json:"class_name"`
	Subject     string    `db:"subject" json:"subject"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TimetableFilter narrows timetable listings.
type TimetableFilter struct {
	Branch    Branch
	DayOfWeek *int
}
