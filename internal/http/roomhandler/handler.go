package roomhandler

import (
	"chatrelay/internal/relay"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler is the read-only REST surface over the room registry.
type Handler struct {
	registry *relay.Registry
}

func New(registry *relay.Registry) *Handler { return &Handler{registry: registry} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/rooms", h.list)
	r.GET("/rooms/:id", h.info)
	r.GET("/rooms/:id/history", h.history)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Rooms())
}

func (h *Handler) info(c *gin.Context) {
	info, ok := h.registry.Room(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// history serves the same replayable log a joining WebSocket client gets.
func (h *Handler) history(c *gin.Context) {
	msgs := h.registry.History(c.Param("id"))
	if msgs == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}
