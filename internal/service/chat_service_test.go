package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/realtime"
)

type memoryChat struct {
	messages []models.ChatMessage
	limit    int
}

func (m *memoryChat) ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	m.limit = limit
	if len(m.messages) > limit {
		return m.messages[len(m.messages)-limit:], nil
	}
	return m.messages, nil
}

func (m *memoryChat) Create(ctx context.Context, message *models.ChatMessage) error {
	message.ID = fmt.Sprintf("msg-%d", len(m.messages)+1)
	m.messages = append(m.messages, *message)
	return nil
}

type profilesStub map[string]models.Profile

func (p profilesStub) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	profile, ok := p[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

func newTestChatService(store *memoryChat, perMinute, burst int) (*ChatService, *recordingNotifier) {
	notifier := &recordingNotifier{}
	svc := NewChatService(ChatServiceParams{
		Messages: store,
		Profiles: profilesStub{
			"cr-CSE": {ID: "cr-CSE", Name: "Asha", Branch: models.BranchCSE},
			"cr-ECE": {ID: "cr-ECE", Name: "Ravi", Branch: models.BranchECE},
		},
		Notifier:      notifier,
		RatePerMinute: perMinute,
		Burst:         burst,
	})
	return svc, notifier
}

func TestChatPostStampsProfileBranch(t *testing.T) {
	store := &memoryChat{}
	svc, notifier := newTestChatService(store, 0, 0)

	actor := crActor(models.BranchCSE)
	actor.Branch = models.BranchIT
	msg, err := svc.Post(context.Background(), actor, dto.PostChatMessageRequest{Message: "  room 101 is free  "})
	require.NoError(t, err)
	assert.Equal(t, "room 101 is free", msg.Message)
	assert.Equal(t, models.BranchCSE, msg.SenderBranch)
	assert.Equal(t, "Asha", *msg.SenderName)
	assert.Equal(t, 1, notifier.count(realtime.CollectionChat))
}

func TestChatPostRejectsBlankAndStudents(t *testing.T) {
	svc, _ := newTestChatService(&memoryChat{}, 0, 0)

	_, err := svc.Post(context.Background(), crActor(models.BranchCSE), dto.PostChatMessageRequest{Message: "   "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Post(context.Background(), studentActor(models.BranchCSE), dto.PostChatMessageRequest{Message: "hi"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.List(context.Background(), studentActor(models.BranchCSE))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestChatRateLimitIsPerSender(t *testing.T) {
	svc, _ := newTestChatService(&memoryChat{}, 1, 2)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()
	req := dto.PostChatMessageRequest{Message: "hello"}

	for i := 0; i < 2; i++ {
		_, err := svc.Post(ctx, crActor(models.BranchCSE), req)
		require.NoError(t, err)
	}
	_, err := svc.Post(ctx, crActor(models.BranchCSE), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRateLimited.Code, appErrors.FromError(err).Code)

	_, err = svc.Post(ctx, crActor(models.BranchECE), req)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = svc.Post(ctx, crActor(models.BranchCSE), req)
	require.NoError(t, err)
}

func TestChatListUsesHistoryLimit(t *testing.T) {
	store := &memoryChat{}
	for i := 0; i < 120; i++ {
		store.messages = append(store.messages, models.ChatMessage{ID: fmt.Sprintf("m%d", i)})
	}
	svc, _ := newTestChatService(store, 0, 0)

	messages, err := svc.List(context.Background(), crActor(models.BranchCSE))
	require.NoError(t, err)
	assert.Equal(t, 100, store.limit)
	assert.Len(t, messages, 100)
	assert.Equal(t, "m20", messages[0].ID)
}
