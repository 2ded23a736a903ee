package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/services"
)

// RiskHandler exposes the live risk manager's parameters and position book.
type RiskHandler struct {
	risk *services.RiskManager
}

func NewRiskHandler(risk *services.RiskManager) *RiskHandler {
	return &RiskHandler{risk: risk}
}

// GetParameters handles GET /api/v1/risk/parameters.
func (h *RiskHandler) GetParameters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"parameters": h.risk.Parameters(),
		"daily_loss": h.risk.DailyLoss(),
		"halted":     h.risk.Halted(),
	})
}

// UpdateParameters handles PUT /api/v1/risk/parameters. The body is a
// partial patch; omitted fields keep their current values.
func (h *RiskHandler) UpdateParameters(c *gin.Context) {
	var patch models.RiskParametersPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	updated, err := h.risk.UpdateParameters(patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"parameters": updated})
}

// GetPositions handles GET /api/v1/risk/positions.
func (h *RiskHandler) GetPositions(c *gin.Context) {
	positions := h.risk.Positions()
	c.JSON(http.StatusOK, gin.H{
		"positions": positions,
		"count":     len(positions),
	})
}
