package dto

import (
	"time"

	"github.com/classtrack/classtrack-api/internal/models"
)

// SetRoomStatusRequest changes a room's status. Window fields are required unless the room is being vacated.
type SetRoomStatusRequest struct {
	Status    models.OccupancyStatus `json:"status" validate:"required,oneof=vacant occupied reserved"`
	ClassName string                 `json:"class_name" validate:"required_unless=Status vacant,max=120"`
	Subject   *string                `json:"subject,omitempty" validate:"omitempty,max=120"`
	Purpose   *string                `json:"purpose,omitempty" validate:"omitempty,max=255"`
	StartTime *time.Time             `json:"start_time,omitempty" validate:"required_unless=Status vacant"`
	EndTime   *time.Time             `json:"end_time,omitempty" validate:"required_unless=Status vacant"`
}

// SetRoomStatusResult reports the outcome of a reconciliation.
type SetRoomStatusResult struct {
	RoomID  string                  `json:"room_id"`
	Status  models.OccupancyStatus  `json:"status"`
	Closed  int64                   `json:"closed"`
	Removed int64                   `json:"removed"`
	Window  *models.OccupancyWindow `json:"window,omitempty"`
}

// GridRoom is one cell of the live room grid.
type GridRoom struct {
	Room          models.Room             `json:"room"`
	Status        models.OccupancyStatus  `json:"status"`
	Occupancy     *models.OccupancyWindow `json:"occupancy,omitempty"`
	TimeRemaining string                  `json:"time_remaining,omitempty"`
}

// GridSummary counts rooms per status.
type GridSummary struct {
	Vacant   int `json:"vacant"`
	Occupied int `json:"occupied"`
	Reserved int `json:"reserved"`
}

// RoomGrid is the full grid response.
type RoomGrid struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Summary     GridSummary `json:"summary"`
	Rooms       []GridRoom  `json:"rooms"`
}
