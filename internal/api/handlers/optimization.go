package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/database"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/services"
)

// OptimizationHandler exposes the parameter sweep lifecycle: start, observe,
// cancel and read back the last persisted report.
type OptimizationHandler struct {
	loader    *services.HistoryLoader
	optimizer *services.Optimizer
	risk      *services.RiskManager
}

func NewOptimizationHandler(loader *services.HistoryLoader, optimizer *services.Optimizer, risk *services.RiskManager) *OptimizationHandler {
	return &OptimizationHandler{loader: loader, optimizer: optimizer, risk: risk}
}

// OptimizationRequest names the data file and an optional custom search
// space. Absent ranges fall back to the standard grid.
type OptimizationRequest struct {
	DataPath string                 `json:"data_path" binding:"required"`
	Ranges   *services.FieldRanges  `json:"ranges,omitempty"`
	Baseline *models.RiskParameters `json:"baseline,omitempty"`
}

// RunOptimization handles POST /api/v1/optimization/run. The sweep runs in
// the background; progress is observable via the status endpoint.
func (h *OptimizationHandler) RunOptimization(c *gin.Context) {
	var req OptimizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	events, err := h.loader.Load(req.DataPath)
	if err != nil {
		respondError(c, err)
		return
	}

	baseline := h.risk.Parameters()
	if req.Baseline != nil {
		baseline = *req.Baseline
	}
	if err := baseline.Validate(); err != nil {
		respondError(c, err)
		return
	}

	ranges := services.DefaultFieldRanges()
	if req.Ranges != nil {
		ranges = *req.Ranges
	}
	grid := ranges.Enumerate(baseline)

	runID, err := h.optimizer.StartAsync(events, baseline, grid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":       runID,
		"combinations": len(grid),
	})
}

// OptimizationStatus handles GET /api/v1/optimization/status.
func (h *OptimizationHandler) OptimizationStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.optimizer.Status())
}

// CancelOptimization handles POST /api/v1/optimization/cancel.
func (h *OptimizationHandler) CancelOptimization(c *gin.Context) {
	if !h.optimizer.CancelSweep() {
		c.JSON(http.StatusConflict, gin.H{"error": "no optimization sweep is running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// LastReport handles GET /api/v1/optimization/last.
func (h *OptimizationHandler) LastReport(c *gin.Context) {
	report, err := h.optimizer.LastReport(c.Request.Context())
	if err != nil {
		if errors.Is(err, database.ErrNoReport) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no optimization report available"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
