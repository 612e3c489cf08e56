package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/response"
)

type chatService interface {
	List(ctx context.Context, actor *models.JWTClaims) ([]models.ChatMessage, error)
	Post(ctx context.Context, actor *models.JWTClaims, req dto.PostChatMessageRequest) (*models.ChatMessage, error)
}

// ChatHandler serves the class representative lobby.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(svc chatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// List godoc
// @Summary Recent lobby messages
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /chat/messages [get]
func (h *ChatHandler) List(c *gin.Context) {
	messages, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, http.StatusOK, messages)
}

// Post godoc
// @Summary Send a lobby message
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.PostChatMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Security BearerAuth
// @Router /chat/messages [post]
func (h *ChatHandler) Post(c *gin.Context) {
	var req dto.PostChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err, "invalid message payload")
		return
	}
	msg, err := h.service.Post(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}
