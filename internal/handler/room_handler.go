package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/dto"
	"github.com/classtrack/classtrack-api/internal/middleware"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/pkg/response"
)

type gridService interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	Grid(ctx context.Context) (*dto.RoomGrid, error)
}

type roomStatusService interface {
	SetRoomStatus(ctx context.Context, actor *models.JWTClaims, roomID string, req dto.SetRoomStatusRequest) (*dto.SetRoomStatusResult, error)
}

// RoomHandler exposes rooms, the live grid and status changes.
type RoomHandler struct {
	grid      gridService
	occupancy roomStatusService
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(grid gridService, occupancy roomStatusService) *RoomHandler {
	return &RoomHandler{grid: grid, occupancy: occupancy}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.grid.Rooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(rooms))
	ok(c, http.StatusOK, rooms)
}

// Grid godoc
// @Summary Live room grid
// @Description Every room with its current status, active window and time remaining
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/grid [get]
func (h *RoomHandler) Grid(c *gin.Context) {
	grid, err := h.grid.Grid(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, http.StatusOK, grid)
}

// SetStatus godoc
// @Summary Change room status
// @Description Closes the room's current and upcoming windows and, unless vacating, opens a new one
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body dto.SetRoomStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /rooms/{id}/status [put]
func (h *RoomHandler) SetStatus(c *gin.Context) {
	var req dto.SetRoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err, "invalid status payload")
		return
	}
	res, err := h.occupancy.SetRoomStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
