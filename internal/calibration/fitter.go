package calibration

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/utils"
)

// MinObservations is the smallest sample a refit will accept; below it the
// prior parameters stay in force.
const MinObservations = 20

var bucketEdges = []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0}

// BucketStat summarizes one probability bucket of the reliability table.
type BucketStat struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	MeanRealized  float64 `json:"mean_realized"`
	Gap           float64 `json:"gap"`
}

// FitReport is the full result of one refit: new parameters plus the
// diagnostics an operator needs to judge them.
type FitReport struct {
	Params  Params       `json:"params"`
	Brier   float64      `json:"brier_score"`
	Buckets []BucketStat `json:"buckets"`
	Samples int          `json:"samples"`
}

// Fitter refits the affine calibration from resolved outcome records.
type Fitter struct {
	minObs int
	logger *logrus.Logger
}

// NewFitter builds a fitter. A non-positive minObs falls back to
// MinObservations.
func NewFitter(minObs int, logger *logrus.Logger) *Fitter {
	if minObs <= 0 {
		minObs = MinObservations
	}
	return &Fitter{minObs: minObs, logger: logger}
}

// Fit buckets the records into five fixed probability bins, computes the
// centroid (mean predicted, mean realized) of each non-empty bucket, and
// fits predicted onto realized by ordinary least squares over those
// centroids. Too few observations, or centroids that collapse onto a single
// x value, refuse the fit with an insufficient-data error so the caller
// keeps its prior parameters.
func (f *Fitter) Fit(records []models.OutcomeRecord) (*FitReport, error) {
	if len(records) < f.minObs {
		return nil, utils.NewInsufficientDataError(f.minObs, len(records))
	}

	buckets := make([]BucketStat, len(bucketEdges)-1)
	for i := range buckets {
		buckets[i].Lower = bucketEdges[i]
		buckets[i].Upper = bucketEdges[i+1]
	}

	var brier float64
	for _, rec := range records {
		idx := bucketIndex(rec.PredictedProb)
		buckets[idx].Count++
		buckets[idx].MeanPredicted += rec.PredictedProb
		buckets[idx].MeanRealized += float64(rec.Outcome)

		d := rec.PredictedProb - float64(rec.Outcome)
		brier += d * d
	}
	brier /= float64(len(records))

	var xs, ys []float64
	for i := range buckets {
		if buckets[i].Count == 0 {
			continue
		}
		buckets[i].MeanPredicted /= float64(buckets[i].Count)
		buckets[i].MeanRealized /= float64(buckets[i].Count)
		buckets[i].Gap = buckets[i].MeanRealized - buckets[i].MeanPredicted
		xs = append(xs, buckets[i].MeanPredicted)
		ys = append(ys, buckets[i].MeanRealized)
	}

	slope, intercept, ok := leastSquares(xs, ys)
	if !ok {
		f.logger.WithField("buckets", len(xs)).Warn("Calibration fit degenerate, keeping prior parameters")
		return nil, utils.NewInsufficientDataError(2, len(xs))
	}

	report := &FitReport{
		Params: Params{
			Slope:     slope,
			Intercept: intercept,
			FittedAt:  time.Now().UTC(),
			Samples:   len(records),
		},
		Brier:   brier,
		Buckets: buckets,
		Samples: len(records),
	}

	f.logger.WithFields(logrus.Fields{
		"slope":     slope,
		"intercept": intercept,
		"brier":     brier,
		"samples":   len(records),
	}).Info("Fitted calibration parameters")
	return report, nil
}

// bucketIndex maps a probability onto its bin; bins are closed on the left,
// the last bin closed on both sides.
func bucketIndex(p float64) int {
	idx := int(p * 5)
	if idx < 0 {
		return 0
	}
	if idx > 4 {
		return 4
	}
	return idx
}

// leastSquares fits y = slope*x + intercept. It reports ok=false when fewer
// than two points remain or all x values coincide.
func leastSquares(xs, ys []float64) (slope, intercept float64, ok bool) {
	n := float64(len(xs))
	if len(xs) < 2 {
		return 0, 0, false
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX float64
	for i := range xs {
		dx := xs[i] - meanX
		cov += dx * (ys[i] - meanY)
		varX += dx * dx
	}
	if varX == 0 {
		return 0, 0, false
	}
	slope = cov / varX
	intercept = meanY - slope*meanX
	return slope, intercept, true
}
