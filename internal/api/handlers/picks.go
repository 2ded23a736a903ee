package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/services"
)

// PicksHandler serves the tiered picks for the current serving cycle.
type PicksHandler struct {
	picks *services.PicksService
}

func NewPicksHandler(picks *services.PicksService) *PicksHandler {
	return &PicksHandler{picks: picks}
}

// GetPicks handles GET /api/v1/picks.
func (h *PicksHandler) GetPicks(c *gin.Context) {
	response, err := h.picks.GetPicks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}
