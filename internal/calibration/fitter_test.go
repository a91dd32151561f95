package calibration

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/models"
	"github.com/oddsight/oddsight/internal/utils"
)

func record(p float64, outcome int) models.OutcomeRecord {
	return models.OutcomeRecord{PredictedProb: p, Outcome: outcome}
}

// perfectRecords builds records whose realized frequency matches the
// predicted probability inside each bucket.
func perfectRecords() []models.OutcomeRecord {
	var records []models.OutcomeRecord
	for _, p := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		wins := int(p * 10)
		for i := 0; i < 10; i++ {
			outcome := 0
			if i < wins {
				outcome = 1
			}
			records = append(records, record(p, outcome))
		}
	}
	return records
}

func TestFit_PerfectCalibrationIsIdentity(t *testing.T) {
	f := NewFitter(MinObservations, logrus.New())
	report, err := f.Fit(perfectRecords())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, report.Params.Slope, 1e-6)
	assert.InDelta(t, 0.0, report.Params.Intercept, 1e-6)
	assert.Equal(t, 50, report.Samples)
}

func TestFit_RefusesTooFewObservations(t *testing.T) {
	f := NewFitter(MinObservations, logrus.New())

	records := []models.OutcomeRecord{record(0.6, 1), record(0.4, 0)}
	_, err := f.Fit(records)
	require.Error(t, err)
	assert.True(t, utils.IsInsufficientData(err))
}

func TestFit_RefusesSingleBucket(t *testing.T) {
	f := NewFitter(MinObservations, logrus.New())

	// All predictions land in the same bucket: no line can be fit.
	var records []models.OutcomeRecord
	for i := 0; i < 30; i++ {
		records = append(records, record(0.55, i%2))
	}
	_, err := f.Fit(records)
	require.Error(t, err)
	assert.True(t, utils.IsInsufficientData(err))
}

func TestFit_OverconfidentModelGetsDampened(t *testing.T) {
	f := NewFitter(MinObservations, logrus.New())

	// Predictions of 0.9 that only realize 60%, predictions of 0.1 that
	// realize 40%: the fitted line must compress toward the middle.
	var records []models.OutcomeRecord
	for i := 0; i < 20; i++ {
		outcome := 0
		if i < 12 {
			outcome = 1
		}
		records = append(records, record(0.9, outcome))
	}
	for i := 0; i < 20; i++ {
		outcome := 0
		if i < 8 {
			outcome = 1
		}
		records = append(records, record(0.1, outcome))
	}

	report, err := f.Fit(records)
	require.NoError(t, err)
	assert.Less(t, report.Params.Slope, 1.0)
	assert.Greater(t, report.Params.Intercept, 0.0)

	// slope = (0.6-0.4)/(0.9-0.1) = 0.25, intercept = 0.5 - 0.25*0.5.
	assert.InDelta(t, 0.25, report.Params.Slope, 1e-6)
	assert.InDelta(t, 0.375, report.Params.Intercept, 1e-6)
}

func TestFit_BrierScore(t *testing.T) {
	f := NewFitter(MinObservations, logrus.New())

	// Half predicted 0.8 all resolving YES, half predicted 0.2 all NO:
	// brier = 0.04 for every record.
	var records []models.OutcomeRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(0.8, 1))
		records = append(records, record(0.2, 0))
	}
	report, err := f.Fit(records)
	require.NoError(t, err)
	assert.InDelta(t, 0.04, report.Brier, 1e-9)
}

func TestFit_BucketReliability(t *testing.T) {
	f := NewFitter(MinObservations, logrus.New())

	report, err := f.Fit(perfectRecords())
	require.NoError(t, err)
	require.Len(t, report.Buckets, 5)
	for _, b := range report.Buckets {
		assert.Equal(t, 10, b.Count)
		assert.InDelta(t, 0.0, b.Gap, 1e-9)
	}
}

func TestBucketIndex(t *testing.T) {
	assert.Equal(t, 0, bucketIndex(0.0))
	assert.Equal(t, 0, bucketIndex(0.19))
	assert.Equal(t, 1, bucketIndex(0.2))
	assert.Equal(t, 4, bucketIndex(0.8))
	assert.Equal(t, 4, bucketIndex(1.0))
}
