package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/calibration"
	"github.com/oddsight/oddsight/internal/database"
	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/utils"
)

// DecisionStore is the persistence surface the API reads decisions from.
type DecisionStore interface {
	RecentDecisions(ctx context.Context, symbol string, limit int) ([]models.Decision, error)
	Stats(ctx context.Context) (*database.DecisionStats, error)
	ResolvedOutcomes(ctx context.Context, limit int) ([]models.OutcomeRecord, error)
	ResolveOutcome(ctx context.Context, rec models.OutcomeRecord) error
}

// ParamsStore persists calibration parameters across restarts.
type ParamsStore interface {
	Load() (calibration.Params, error)
	Save(params calibration.Params) error
}

// Handler serves the decision history and calibration endpoints.
type Handler struct {
	store      DecisionStore
	calibrator *calibration.Calibrator
	fitter     *calibration.Fitter
	params     ParamsStore
	logger     *logrus.Logger
}

// NewHandler wires the API handler to its dependencies.
func NewHandler(
	store DecisionStore,
	calibrator *calibration.Calibrator,
	fitter *calibration.Fitter,
	params ParamsStore,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		store:      store,
		calibrator: calibrator,
		fitter:     fitter,
		params:     params,
		logger:     logger,
	}
}

// DecisionsResponse is the payload for decision listings.
type DecisionsResponse struct {
	Decisions []models.Decision `json:"decisions"`
	Count     int               `json:"count"`
	Timestamp time.Time         `json:"timestamp"`
}

// GetDecisions lists recent decisions, optionally filtered by symbol.
func (h *Handler) GetDecisions(c *gin.Context) {
	symbol := c.Query("symbol")
	limit := parseLimit(c.DefaultQuery("limit", "50"))

	decisions, err := h.store.RecentDecisions(c.Request.Context(), symbol, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query decisions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query decisions"})
		return
	}

	c.JSON(http.StatusOK, DecisionsResponse{
		Decisions: decisions,
		Count:     len(decisions),
		Timestamp: time.Now().UTC(),
	})
}

// GetDecisionsBySymbol lists recent decisions for one symbol.
func (h *Handler) GetDecisionsBySymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	limit := parseLimit(c.DefaultQuery("limit", "50"))

	decisions, err := h.store.RecentDecisions(c.Request.Context(), symbol, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query decisions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query decisions"})
		return
	}

	c.JSON(http.StatusOK, DecisionsResponse{
		Decisions: decisions,
		Count:     len(decisions),
		Timestamp: time.Now().UTC(),
	})
}

// GetStats returns aggregate decision statistics.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to query stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ResolveOutcomeRequest reports the realized result of a decision.
type ResolveOutcomeRequest struct {
	DecisionID string `json:"decision_id" binding:"required"`
	Outcome    *int   `json:"outcome" binding:"required"`
}

// PostOutcome records the realized outcome for a decision.
func (h *Handler) PostOutcome(c *gin.Context) {
	var req ResolveOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Outcome != 0 && *req.Outcome != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be 0 or 1"})
		return
	}

	rec := models.OutcomeRecord{
		DecisionID: req.DecisionID,
		Outcome:    *req.Outcome,
		ResolvedAt: time.Now().UTC(),
	}
	if err := h.store.ResolveOutcome(c.Request.Context(), rec); err != nil {
		if errors.Is(err, database.ErrDecisionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "decision not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to resolve outcome")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve outcome"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "resolved"})
}

// GetCalibration returns the active calibration parameters.
func (h *Handler) GetCalibration(c *gin.Context) {
	c.JSON(http.StatusOK, h.calibrator.Params())
}

// RefitCalibration refits calibration from resolved outcomes, activates the
// new parameters and persists them.
func (h *Handler) RefitCalibration(c *gin.Context) {
	records, err := h.store.ResolvedOutcomes(c.Request.Context(), 10000)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load resolved outcomes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load resolved outcomes"})
		return
	}

	report, err := h.fitter.Fit(records)
	if err != nil {
		if utils.IsInsufficientData(err) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Calibration fit failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "calibration fit failed"})
		return
	}

	h.calibrator.SetParams(report.Params)
	if err := h.params.Save(report.Params); err != nil {
		h.logger.WithError(err).Error("Failed to persist calibration parameters")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fit succeeded but parameters were not persisted"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ReloadCalibration re-reads persisted parameters and activates them.
func (h *Handler) ReloadCalibration(c *gin.Context) {
	params, err := h.params.Load()
	if err != nil {
		h.logger.WithError(err).Error("Failed to load calibration parameters")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load calibration parameters"})
		return
	}
	h.calibrator.SetParams(params)
	c.JSON(http.StatusOK, params)
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
