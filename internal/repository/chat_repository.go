package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classtrack/classtrack-api/internal/models"
)

// ChatRepository stores class representative lobby messages.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository creates a new instance of ChatRepository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// ListRecent returns the latest limit messages in chronological order.
func (r *ChatRepository) ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	const query = `SELECT id, sender_id, sender_branch, sender_name, message, created_at FROM (
SELECT m.id, m.sender_id, m.sender_branch, p.name AS sender_name, m.message, m.created_at
FROM cr_chat_messages m LEFT JOIN profiles p ON p.id = m.sender_id
ORDER BY m.created_at DESC LIMIT $1
) recent ORDER BY created_at ASC`
	var messages []models.ChatMessage
	if err := r.db.SelectContext(ctx, &messages, query, limit); err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return messages, nil
}

// Create appends a message.
func (r *ChatRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO cr_chat_messages (id, sender_id, sender_branch, message, created_at) VALUES (:id, :sender_id, :sender_branch, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create chat message: %w", err)
	}
	return nil
}
