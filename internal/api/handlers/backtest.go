package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/services"
)

// BacktestHandler runs one-off backtests against a historical data file.
type BacktestHandler struct {
	loader     *services.HistoryLoader
	backtester *services.Backtester
	risk       *services.RiskManager
}

func NewBacktestHandler(loader *services.HistoryLoader, backtester *services.Backtester, risk *services.RiskManager) *BacktestHandler {
	return &BacktestHandler{loader: loader, backtester: backtester, risk: risk}
}

// BacktestRequest names the data file to replay and an optional parameter
// patch over the active risk parameters.
type BacktestRequest struct {
	DataPath string                      `json:"data_path" binding:"required"`
	Params   *models.RiskParametersPatch `json:"params,omitempty"`
}

// RunBacktest handles POST /api/v1/backtest/run.
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	events, err := h.loader.Load(req.DataPath)
	if err != nil {
		respondError(c, err)
		return
	}

	params := h.risk.Parameters()
	if req.Params != nil {
		params = req.Params.Apply(params)
	}

	report, err := h.backtester.Run(c.Request.Context(), events, params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"params": params,
		"report": report,
	})
}
