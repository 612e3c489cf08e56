package models

import "time"

// Room is a classroom. Rooms are reference data maintained outside this API.
type Room struct {
	ID         string    `db:"id" json:"id"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	Building   string    `db:"building" json:"building"`
	Floor      string    `db:"floor" json:"floor"`
	Capacity   int       `db:"capacity" json:"capacity"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
