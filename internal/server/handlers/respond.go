package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/domain/pricing"
	"github.com/hmiyata/battrack/internal/service/lifecycle"
)

// respondEngineError maps engine failures onto HTTP statuses: batch
// validation conflicts carry the offender list, caller mistakes come back
// as 400, and store trouble as 502.
func respondEngineError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *lifecycle.TransitionError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusConflict, gin.H{
			"error":             verr.Error(),
			"offending_serials": verr.Offending(),
			"current_statuses":  verr.CurrentStatuses(),
		})
	case errors.Is(err, pricing.ErrUnknownZone), errors.Is(err, lifecycle.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("ledger operation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "record store operation failed"})
	}
}
