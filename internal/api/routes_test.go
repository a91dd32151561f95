package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/calibration"
	"github.com/oddsight/oddsight/internal/database"
	"github.com/oddsight/oddsight/internal/models"
)

type stubStore struct {
	decisions []models.Decision
	stats     *database.DecisionStats
	outcomes  []models.OutcomeRecord
	resolved  []models.OutcomeRecord
	err       error

	lastSymbol string
}

func (s *stubStore) RecentDecisions(_ context.Context, symbol string, _ int) ([]models.Decision, error) {
	s.lastSymbol = symbol
	return s.decisions, s.err
}

func (s *stubStore) Stats(context.Context) (*database.DecisionStats, error) {
	return s.stats, s.err
}

func (s *stubStore) ResolvedOutcomes(context.Context, int) ([]models.OutcomeRecord, error) {
	return s.outcomes, s.err
}

func (s *stubStore) ResolveOutcome(_ context.Context, rec models.OutcomeRecord) error {
	if s.err != nil {
		return s.err
	}
	s.resolved = append(s.resolved, rec)
	return nil
}

type okHealth struct{}

func (okHealth) HealthCheck(context.Context) error { return nil }

type downHealth struct{}

func (downHealth) HealthCheck(context.Context) error { return errors.New("unreachable") }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestRouter(t *testing.T, store *stubStore, db, redis HealthChecker) (*gin.Engine, *calibration.Calibrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := quietLogger()
	calibrator := calibration.NewCalibrator(calibration.DefaultParams())
	fitter := calibration.NewFitter(0, logger)
	paramsStore := calibration.NewFileStore(filepath.Join(t.TempDir(), "params.json"), logger)
	handler := NewHandler(store, calibrator, fitter, paramsStore, logger)

	router := gin.New()
	SetupRoutes(router, handler, db, redis)
	return router, calibrator
}

func TestHealth_AllServicesUp(t *testing.T) {
	router, _ := newTestRouter(t, &stubStore{}, okHealth{}, okHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Services.Database)
}

func TestHealth_DegradedWhenRedisDown(t *testing.T) {
	router, _ := newTestRouter(t, &stubStore{}, okHealth{}, downHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "error", resp.Services.Redis)
	assert.Equal(t, "ok", resp.Services.Database)
}

func TestGetDecisions_FiltersBySymbolParam(t *testing.T) {
	store := &stubStore{decisions: []models.Decision{{ID: "a", Symbol: "BTCUSDT", Signal: "YES"}}}
	router, _ := newTestRouter(t, store, okHealth{}, okHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/decisions/BTCUSDT", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BTCUSDT", store.lastSymbol)

	var resp DecisionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "YES", resp.Decisions[0].Signal)
}

func TestGetStats(t *testing.T) {
	store := &stubStore{stats: &database.DecisionStats{Total: 10, Resolved: 4, Wins: 3, Accuracy: 0.75}}
	router, _ := newTestRouter(t, store, okHealth{}, okHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var stats database.DecisionStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.InDelta(t, 0.75, stats.Accuracy, 1e-9)
}

func TestPostOutcome_Resolves(t *testing.T) {
	store := &stubStore{}
	router, _ := newTestRouter(t, store, okHealth{}, okHealth{})

	body, _ := json.Marshal(map[string]interface{}{"decision_id": "id-1", "outcome": 1})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outcomes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.resolved, 1)
	assert.Equal(t, "id-1", store.resolved[0].DecisionID)
	assert.Equal(t, 1, store.resolved[0].Outcome)
}

func TestPostOutcome_UnknownDecision(t *testing.T) {
	store := &stubStore{err: database.ErrDecisionNotFound}
	router, _ := newTestRouter(t, store, okHealth{}, okHealth{})

	body, _ := json.Marshal(map[string]interface{}{"decision_id": "nope", "outcome": 0})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outcomes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostOutcome_RejectsBadOutcome(t *testing.T) {
	router, _ := newTestRouter(t, &stubStore{}, okHealth{}, okHealth{})

	body, _ := json.Marshal(map[string]interface{}{"decision_id": "id-1", "outcome": 2})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outcomes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCalibration_ReturnsActiveParams(t *testing.T) {
	router, calibrator := newTestRouter(t, &stubStore{}, okHealth{}, okHealth{})
	calibrator.SetParams(calibration.Params{Slope: 0.8, Intercept: 0.1, FittedAt: time.Now().UTC(), Samples: 40})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/calibration", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var params calibration.Params
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	assert.InDelta(t, 0.8, params.Slope, 1e-9)
}

func refitOutcomes() []models.OutcomeRecord {
	probs := []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	wins := []int{1, 3, 5, 7, 9}
	var records []models.OutcomeRecord
	for b, p := range probs {
		for i := 0; i < 10; i++ {
			outcome := 0
			if i < wins[b] {
				outcome = 1
			}
			records = append(records, models.OutcomeRecord{
				DecisionID:    "id",
				PredictedProb: p,
				Outcome:       outcome,
				ResolvedAt:    time.Now().UTC(),
			})
		}
	}
	return records
}

func TestRefitCalibration_ActivatesNewParams(t *testing.T) {
	store := &stubStore{outcomes: refitOutcomes()}
	router, calibrator := newTestRouter(t, store, okHealth{}, okHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/calibration/refit", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var report calibration.FitReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 50, report.Samples)
	assert.InDelta(t, report.Params.Slope, calibrator.Params().Slope, 1e-9)
}

func TestRefitCalibration_TooFewOutcomes(t *testing.T) {
	store := &stubStore{outcomes: refitOutcomes()[:5]}
	router, _ := newTestRouter(t, store, okHealth{}, okHealth{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/calibration/refit", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReloadCalibration_MissingFileFallsBackToIdentity(t *testing.T) {
	router, calibrator := newTestRouter(t, &stubStore{}, okHealth{}, okHealth{})
	calibrator.SetParams(calibration.Params{Slope: 2, Intercept: -0.5})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/calibration/reload", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1.0, calibrator.Params().Slope, 1e-9)
	assert.InDelta(t, 0.0, calibrator.Params().Intercept, 1e-9)
}
