package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/domain/models"
	"github.com/hmiyata/battrack/internal/service/lifecycle"
	"github.com/hmiyata/battrack/internal/service/reporting"
)

const (
	// defaultPickupLimit is how many units a pickup run suggests unless
	// the caller asks otherwise.
	defaultPickupLimit = 7
	// defaultSnapshotLimit is how far back the snapshot history reaches
	// by default, in weeks.
	defaultSnapshotLimit = 12
)

// InventoryHandler exposes the lifecycle and reporting operations over HTTP.
type InventoryHandler struct {
	engine       *lifecycle.Engine
	reportingSvc *reporting.Service
	now          func() time.Time
	logger       *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(engine *lifecycle.Engine, reportingSvc *reporting.Service, clock func() time.Time, logger *zap.Logger) *InventoryHandler {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{engine: engine, reportingSvc: reportingSvc, now: clock, logger: logger}
}

// PreviewIntake parses pasted report text without writing anything, so the
// operator can check the extracted pairs before committing.
func (h *InventoryHandler) PreviewIntake(c *gin.Context) {
	var req models.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid intake payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	defaultDate, err := h.parseDate(req.DefaultDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pairs := models.ExtractPairs(req.Text, defaultDate)
	c.JSON(http.StatusOK, gin.H{"pairs": pairs, "count": len(pairs)})
}

// Intake registers the units found in pasted text as in stock.
func (h *InventoryHandler) Intake(c *gin.Context) {
	var req models.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid intake payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	defaultDate, err := h.parseDate(req.DefaultDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pairs := models.ExtractPairs(req.Text, defaultDate)
	if len(pairs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no serials found in text"})
		return
	}

	result, err := h.engine.RegisterNew(c.Request.Context(), pairs)
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompleteReturns confirms a return batch and reports the applied pricing.
func (h *InventoryHandler) CompleteReturns(c *gin.Context) {
	var req models.ReturnBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid return payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	zone, err := models.ParseZone(req.Zone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	serials := serialsFrom(req.Serials, req.Text)
	if len(serials) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no serials in request"})
		return
	}

	result, err := h.engine.CompleteReturns(c.Request.Context(), lifecycle.ReturnRequest{
		Serials:     serials,
		Zone:        zone,
		CompletedAt: date,
		Memo:        req.Memo,
		JobID:       req.JobID,
	})
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Deploy flags in-stock units as checked out for a job.
func (h *InventoryHandler) Deploy(c *gin.Context) {
	var req models.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid deploy payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	serials := serialsFrom(req.Serials, req.Text)
	if len(serials) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no serials in request"})
		return
	}

	updated, err := h.engine.MarkDeployed(c.Request.Context(), serials, req.JobID)
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Archive closes units under a non-paying terminal status.
func (h *InventoryHandler) Archive(c *gin.Context) {
	var req models.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid archive payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	target, err := models.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if target == models.StatusReturned || !target.Terminal() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive status must be terminal and non-paying"})
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	serials := serialsFrom(req.Serials, req.Text)
	if len(serials) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no serials in request"})
		return
	}

	updated, err := h.engine.ArchiveUnits(c.Request.Context(), serials, target, date, req.Memo, req.JobID)
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated, "status": target})
}

// AddAdjustment appends a money-only ledger entry.
func (h *InventoryHandler) AddAdjustment(c *gin.Context) {
	var req models.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid adjustment payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	date, err := h.parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adj := lifecycle.Adjustment{
		Label:  req.Label,
		Date:   date,
		Amount: req.Amount,
		Memo:   req.Memo,
	}
	if err := h.engine.AddAdjustment(c.Request.Context(), adj); err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.Status(http.StatusCreated)
}

// List returns the active inventory in display order.
func (h *InventoryHandler) List(c *gin.Context) {
	units, err := h.reportingSvc.InventoryList(c.Request.Context())
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "count": len(units)})
}

// Search looks units up by serial suffix, the digits printed large on the
// label.
func (h *InventoryHandler) Search(c *gin.Context) {
	suffix := c.Query("suffix")
	result, err := h.reportingSvc.SearchBySuffix(c.Request.Context(), suffix)
	if err != nil {
		if errors.Is(err, reporting.ErrEmptySuffix) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// WeeklyReport returns the KPI block for the current week, or for the week
// holding ?date=YYYY-MM-DD.
func (h *InventoryHandler) WeeklyReport(c *gin.Context) {
	anchor, err := h.parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.reportingSvc.WeeklySummary(c.Request.Context(), anchor)
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PickupReport suggests which units to bring back next.
func (h *InventoryHandler) PickupReport(c *gin.Context) {
	limit := defaultPickupLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	candidates, err := h.reportingSvc.PickupPlan(c.Request.Context(), limit)
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "count": len(candidates)})
}

// SnapshotHistory returns archived weekly KPI blocks, newest first.
func (h *InventoryHandler) SnapshotHistory(c *gin.Context) {
	limit := defaultSnapshotLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	snapshots, err := h.reportingSvc.SnapshotHistory(c.Request.Context(), limit)
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots, "count": len(snapshots)})
}

// parseDate reads an optional YYYY-MM-DD string, defaulting to today.
func (h *InventoryHandler) parseDate(raw string) (time.Time, error) {
	return parseDateOr(raw, h.now)
}

func parseDateOr(raw string, now func() time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DateOf(now()), nil
	}
	parsed, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return parsed, nil
}

// serialsFrom takes explicit serials when given, or falls back to
// extracting them from pasted text.
func serialsFrom(serials []string, text string) []string {
	cleaned := make([]string, 0, len(serials))
	for _, serial := range serials {
		if trimmed := strings.TrimSpace(serial); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) > 0 {
		return cleaned
	}
	return models.ExtractSerials(text)
}
