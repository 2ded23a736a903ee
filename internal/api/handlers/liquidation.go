package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/services"
)

// LiquidationHandler exposes the two-step liquidation workflow.
type LiquidationHandler struct {
	liquidation *services.LiquidationService
}

func NewLiquidationHandler(liquidation *services.LiquidationService) *LiquidationHandler {
	return &LiquidationHandler{liquidation: liquidation}
}

// GenerateCode handles POST /api/v1/liquidation/code. The plaintext code is
// returned once; only its hash survives server-side.
func (h *LiquidationHandler) GenerateCode(c *gin.Context) {
	userID := c.GetString("user_id")

	code, expiresAt, err := h.liquidation.GenerateCode(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       code,
		"expires_at": expiresAt,
	})
}

// LiquidationExecuteRequest carries the confirmation code and the operator's
// stated reason.
type LiquidationExecuteRequest struct {
	Code   string `json:"code" binding:"required"`
	Reason string `json:"reason"`
}

// Execute handles POST /api/v1/liquidation/execute. A failed verification is
// a 403 with the rejection cause; nothing is closed.
func (h *LiquidationHandler) Execute(c *gin.Context) {
	var req LiquidationExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	userID := c.GetString("user_id")

	result, err := h.liquidation.VerifyAndLiquidate(c.Request.Context(), userID, req.Code, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Success {
		c.JSON(http.StatusForbidden, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
