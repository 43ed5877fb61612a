package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dicers-bot/internal/common/errors"
	"dicers-bot/internal/common/middleware"
	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/service"
)

// RoomSource is the read side of the room registry.
type RoomSource interface {
	Rooms() []*service.Room
	Room(id int64) (*service.Room, bool)
	MainRoomID() (int64, bool)
	Ping(ctx context.Context) error
}

type Handler struct {
	rooms   RoomSource
	version string
}

func NewHandler(rooms RoomSource, version string) *Handler {
	return &Handler{
		rooms:   rooms,
		version: version,
	}
}

// RegisterProbes mounts the unauthenticated health endpoints.
func (h *Handler) RegisterProbes(router gin.IRoutes) {
	router.GET("/health", h.health)
	router.GET("/ready", h.ready)
}

// RegisterRoutes mounts the room endpoints. Callers add authentication to the
// group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.GET("", h.listRooms)
		rooms.GET("/:id", h.getRoom)
	}
}

// RoomSummary is the overview of one room.
type RoomSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Main          bool   `json:"main"`
	Keyboard      string `json:"keyboard"`
	SpamDetection bool   `json:"spam_detection"`
	Users         int    `json:"users"`
	Attendees     int    `json:"attendees"`
	Absentees     int    `json:"absentees"`
	Events        int    `json:"events"`
}

type RoomListResponse struct {
	Rooms []RoomSummary `json:"rooms"`
	Total int           `json:"total"`
}

func summarize(s models.RoomSnapshot, mainID int64, hasMain bool) RoomSummary {
	sum := RoomSummary{
		ID:       s.ID,
		Title:    s.Title,
		Type:     s.Type,
		Main:     hasMain && s.ID == mainID,
		Keyboard: s.CurrentKeyboard,
		Users:    len(s.Users),
		Events:   len(s.Events),
	}
	if s.SpamDetection != nil {
		sum.SpamDetection = *s.SpamDetection
	}
	if s.CurrentEvent != nil {
		sum.Attendees = len(s.CurrentEvent.Attendees)
		sum.Absentees = len(s.CurrentEvent.Absentees)
	}
	return sum
}

// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}

// @Summary Readiness probe
// @Description Checks that the state repository is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.rooms.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unready",
			"error":   "state repository unavailable",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// @Summary List rooms
// @Description Summaries of every room the bot has seen, ordered by id.
// @Tags rooms
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} RoomListResponse
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid init data"
// @Failure 403 {object} middleware.ErrorResponse "Not an owner"
// @Router /rooms [get]
func (h *Handler) listRooms(c *gin.Context) {
	mainID, hasMain := h.rooms.MainRoomID()
	rooms := h.rooms.Rooms()

	resp := RoomListResponse{Rooms: make([]RoomSummary, 0, len(rooms))}
	for _, r := range rooms {
		resp.Rooms = append(resp.Rooms, summarize(r.Snapshot(), mainID, hasMain))
	}
	resp.Total = len(resp.Rooms)

	c.JSON(http.StatusOK, resp)
}

// @Summary Get room
// @Description Full state of one room, in the persisted snapshot format.
// @Tags rooms
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Chat ID"
// @Success 200 {object} models.RoomSnapshot
// @Failure 400 {object} middleware.ErrorResponse "Invalid id"
// @Failure 404 {object} middleware.ErrorResponse "Unknown room"
// @Router /rooms/{id} [get]
func (h *Handler) getRoom(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.AbortWithError(c, errors.NewValidationError("id", "must be an integer"))
		return
	}

	room, ok := h.rooms.Room(id)
	if !ok {
		middleware.AbortWithError(c, errors.NewNotFoundError("room", id))
		return
	}

	c.JSON(http.StatusOK, room.Snapshot())
}
