package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/services"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// respondError maps engine error types to HTTP status codes: validation
// failures are the caller's fault (400), missing or corrupt upstream data is
// a bad gateway (502), everything else is a 500.
func respondError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	var upstreamErr *utils.UpstreamDataError

	switch {
	case errors.Is(err, services.ErrVerifyRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSweepRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.As(err, &upstreamErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": upstreamErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
