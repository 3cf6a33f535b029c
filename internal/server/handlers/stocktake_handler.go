package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/domain/models"
	"github.com/hmiyata/battrack/internal/service/stocktake"
)

// StocktakeHandler exposes the stocktake buffer and reconciliation flow
// over HTTP.
type StocktakeHandler struct {
	reconciler *stocktake.Reconciler
	now        func() time.Time
	logger     *zap.Logger
}

// NewStocktakeHandler constructs the HTTP handler adapter.
func NewStocktakeHandler(reconciler *stocktake.Reconciler, clock func() time.Time, logger *zap.Logger) *StocktakeHandler {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StocktakeHandler{reconciler: reconciler, now: clock, logger: logger}
}

// AddToBuffer parses pasted text and merges the observed units into the
// stocktake buffer, so a big count can be pasted in several chunks.
func (h *StocktakeHandler) AddToBuffer(c *gin.Context) {
	var req models.StocktakeBufferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stocktake payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	defaultDate, err := parseDateOr(req.DefaultDate, h.now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pairs := models.ExtractPairs(req.Text, defaultDate)
	if len(pairs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no serials found in text"})
		return
	}

	buffered := h.reconciler.Buffer().Add(pairs)
	c.JSON(http.StatusOK, gin.H{"added": len(pairs), "buffered": buffered})
}

// ClearBuffer drops everything buffered so far.
func (h *StocktakeHandler) ClearBuffer(c *gin.Context) {
	h.reconciler.Buffer().Clear()
	c.Status(http.StatusNoContent)
}

// Run compares the buffer against the recorded active inventory. The
// buffer survives the run so more pastes can follow.
func (h *StocktakeHandler) Run(c *gin.Context) {
	findings, err := h.reconciler.Run(c.Request.Context())
	if err != nil {
		respondEngineError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"observed": h.reconciler.Buffer().Len(),
		"clean":    findings.Clean(),
		"findings": findings,
	})
}

// Apply writes confirmed findings back: registrations, ghost archiving,
// and date fixes, each through the normal lifecycle guards. Nothing is
// ever applied without being listed here.
func (h *StocktakeHandler) Apply(c *gin.Context) {
	var req models.StocktakeApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stocktake apply payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	date, err := parseDateOr(req.Date, h.now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	register, err := pairsFromPayload(req.Register)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fixes, err := pairsFromPayload(req.DateFixes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	ctx := c.Request.Context()
	result := gin.H{"job_id": jobID}

	if len(register) > 0 {
		registered, err := h.reconciler.ApplyNew(ctx, register)
		if err != nil {
			respondEngineError(c, h.logger, err)
			return
		}
		result["registered"] = registered
	}
	if len(req.Archive) > 0 {
		archived, err := h.reconciler.ApplyMissing(ctx, req.Archive, date, jobID)
		if err != nil {
			respondEngineError(c, h.logger, err)
			return
		}
		result["archived"] = archived
	}
	if len(fixes) > 0 {
		fixed, err := h.reconciler.ApplyDateFixes(ctx, fixes)
		if err != nil {
			respondEngineError(c, h.logger, err)
			return
		}
		result["dates_fixed"] = fixed
	}

	c.JSON(http.StatusOK, result)
}

func pairsFromPayload(payloads []models.SerialDatePayload) ([]models.SerialDate, error) {
	pairs := make([]models.SerialDate, 0, len(payloads))
	for _, payload := range payloads {
		pair, err := payload.Pair()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
