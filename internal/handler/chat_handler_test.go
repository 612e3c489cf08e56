package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
)

type chatMock struct{}

func (chatMock) List(ctx context.Context, actor *models.JWTClaims) ([]models.ChatMessage, error) {
	return []models.ChatMessage{{ID: "m1"}}, nil
}

func (chatMock) Post(ctx context.Context, actor *models.JWTClaims, req dto.PostChatMessageRequest) (*models.ChatMessage, error) {
	return nil, appErrors.Clone(appErrors.ErrRateLimited, "slow down")
}

func TestChatHandler(t *testing.T) {
	h := NewChatHandler(chatMock{})
	router := newTestRouter()
	router.GET("/chat/messages", h.List)
	router.POST("/chat/messages", h.Post)

	resp := performRequest(router, newRequest(http.MethodGet, "/chat/messages", nil, ""))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"id":"m1"`)

	resp = performRequest(router, newRequest(http.MethodPost, "/chat/messages", strings.NewReader(`{"message":"hi"}`), "application/json"))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}
