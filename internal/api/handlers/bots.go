package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/services"
)

// BotsHandler exposes start/stop/restart control over registered bots.
type BotsHandler struct {
	bots *services.BotManager
}

func NewBotsHandler(bots *services.BotManager) *BotsHandler {
	return &BotsHandler{bots: bots}
}

// BotControlRequest carries the control verb.
type BotControlRequest struct {
	Action services.BotAction `json:"action" binding:"required"`
}

// ListBots handles GET /api/v1/bots.
func (h *BotsHandler) ListBots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bots": h.bots.List()})
}

// ControlBot handles POST /api/v1/bots/:id/control.
func (h *BotsHandler) ControlBot(c *gin.Context) {
	var req BotControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if id := c.Param("id"); id == "all" {
		statuses, err := h.bots.ControlAll(req.Action)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bots": statuses})
		return
	}

	status, err := h.bots.Control(c.Param("id"), req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
