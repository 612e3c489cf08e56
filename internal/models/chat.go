package models

import "time"

// ChatMessage is an append-only post in the class representative lobby.
type ChatMessage struct {
	ID           string    `db:"id" json:"id"`
	SenderID     *string   `db:"sender_id" json:"sender_id,omitempty"`
	SenderBranch Branch    `db:"sender_branch" json:"sender_branch"`
	SenderName   *string   `db:"sender_name" json:"sender_name,omitempty"`
	Message      string    `db:"message" json:"message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
