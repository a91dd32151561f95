package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oddsight/oddsight/internal/models"
)

// DatabasePool is the subset of pgxpool.Pool the repository needs; it allows
// a mock pool in tests.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// ErrDecisionNotFound is returned when resolving an outcome for an unknown
// decision.
var ErrDecisionNotFound = errors.New("decision not found")

// DecisionStats aggregates the decision history for reporting.
type DecisionStats struct {
	Total     int     `json:"total"`
	Bettable  int     `json:"bettable"`
	Resolved  int     `json:"resolved"`
	Wins      int     `json:"wins"`
	Accuracy  float64 `json:"accuracy"`
	Brier     float64 `json:"brier_score"`
	AvgEdge   float64 `json:"avg_edge"`
	AvgPYes   float64 `json:"avg_p_yes"`
}

// DecisionRepository persists decisions and their resolved outcomes.
type DecisionRepository struct {
	pool DatabasePool
}

// NewDecisionRepository creates a repository on the given pool.
func NewDecisionRepository(pool DatabasePool) *DecisionRepository {
	return &DecisionRepository{pool: pool}
}

// Insert stores one immutable decision record.
func (r *DecisionRepository) Insert(ctx context.Context, d *models.Decision) error {
	query := `
		INSERT INTO decisions (
			id, symbol, signal, band, p_yes, confidence, edge, ev, is_bettable,
			current_price, predicted_price, distance_to_strike, volatility,
			reasons, market_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.Symbol, d.Signal, int(d.Band), d.ProbYes, d.Confidence,
		d.Edge, d.ExpectedValue, d.IsBettable, d.CurrentPrice, d.PredictedPrice,
		d.DistanceToStrike, d.Volatility, d.Reasons, d.MarketID, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision %s: %w", d.ID, err)
	}
	return nil
}

// ResolveOutcome records the realized result for a decision. The predicted
// probability is copied from the decision row so the calibration fitter
// reads consistent pairs even if decisions are later pruned.
func (r *DecisionRepository) ResolveOutcome(ctx context.Context, rec models.OutcomeRecord) error {
	query := `
		INSERT INTO outcomes (decision_id, predicted_prob, outcome, resolved_at)
		SELECT id, p_yes, $2, $3 FROM decisions WHERE id = $1
		ON CONFLICT (decision_id) DO UPDATE
			SET outcome = EXCLUDED.outcome, resolved_at = EXCLUDED.resolved_at`

	tag, err := r.pool.Exec(ctx, query, rec.DecisionID, rec.Outcome, rec.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to resolve outcome for %s: %w", rec.DecisionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDecisionNotFound
	}
	return nil
}

// ResolvedOutcomes lists (predicted, realized) pairs for the calibration
// fitter, oldest first.
func (r *DecisionRepository) ResolvedOutcomes(ctx context.Context, limit int) ([]models.OutcomeRecord, error) {
	query := `
		SELECT decision_id, predicted_prob, outcome, resolved_at
		FROM outcomes
		ORDER BY resolved_at ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var records []models.OutcomeRecord
	for rows.Next() {
		var rec models.OutcomeRecord
		if err := rows.Scan(&rec.DecisionID, &rec.PredictedProb, &rec.Outcome, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentDecisions lists the latest decisions, optionally for one symbol.
func (r *DecisionRepository) RecentDecisions(ctx context.Context, symbol string, limit int) ([]models.Decision, error) {
	query := `
		SELECT id, symbol, signal, band, p_yes, confidence, edge, ev, is_bettable,
		       current_price, predicted_price, distance_to_strike, volatility,
		       reasons, market_id, created_at
		FROM decisions
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var d models.Decision
		var band int
		err := rows.Scan(
			&d.ID, &d.Symbol, &d.Signal, &band, &d.ProbYes, &d.Confidence,
			&d.Edge, &d.ExpectedValue, &d.IsBettable, &d.CurrentPrice,
			&d.PredictedPrice, &d.DistanceToStrike, &d.Volatility,
			&d.Reasons, &d.MarketID, &d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Band = models.SignalBand(band)
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// Stats aggregates decision and outcome counts.
func (r *DecisionRepository) Stats(ctx context.Context) (*DecisionStats, error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE d.is_bettable),
			count(o.decision_id),
			count(*) FILTER (WHERE (d.signal = 'YES' AND o.outcome = 1)
			              OR (d.signal = 'NO' AND o.outcome = 0)),
			coalesce(avg(power(o.predicted_prob - o.outcome, 2)), 0),
			coalesce(avg(d.edge), 0),
			coalesce(avg(d.p_yes), 0)
		FROM decisions d
		LEFT JOIN outcomes o ON o.decision_id = d.id`

	var s DecisionStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.Total, &s.Bettable, &s.Resolved, &s.Wins, &s.Brier, &s.AvgEdge, &s.AvgPYes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	if s.Resolved > 0 {
		s.Accuracy = float64(s.Wins) / float64(s.Resolved)
	}
	return &s, nil
}
