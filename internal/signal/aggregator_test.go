package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oddsight/oddsight/internal/models"
)

func TestCombine_IdenticalScoresFullAgreement(t *testing.T) {
	agg := NewAggregator(AgreementKTimeframes, DefaultThresholds())
	got := agg.Combine([]Score{
		Input("5m", 0.6, Weight5m),
		Input("15m", 0.6, Weight15m),
		Input("1h", 0.6, Weight1h),
	})

	assert.InDelta(t, 0.6, got.Score, 1e-9)
	assert.InDelta(t, 1.0, got.Agreement, 1e-9)
}

func TestCombine_OpposedScoresZeroAgreement(t *testing.T) {
	agg := NewAggregator(AgreementKTimeframes, DefaultThresholds())
	got := agg.Combine([]Score{
		Input("5m", -1, 0.5),
		Input("15m", 1, 0.5),
	})

	// Variance of {-1, 1} is 1; k=4 drives agreement to the floor.
	assert.InDelta(t, 0.0, got.Agreement, 1e-9)
	assert.InDelta(t, 0.0, got.Score, 1e-9)
	assert.Equal(t, models.BandHold, got.Band)
}

func TestCombine_MissingModulesDoNotDilute(t *testing.T) {
	agg := NewAggregator(AgreementKModules, DefaultThresholds())
	silent := Score{ModuleScore: models.ModuleScore{Name: "sentiment", Weight: WeightSentiment}}
	silent.ADX = math.NaN()
	silent.VolumeRatio = math.NaN()

	got := agg.Combine([]Score{
		Input("technical", 0.8, WeightTechnical),
		silent,
	})

	// Only the fired module contributes; the weighted average is its score.
	assert.InDelta(t, 0.8, got.Score, 1e-9)
	assert.InDelta(t, 1.0, got.Agreement, 1e-9)
	assert.Len(t, got.Modules, 2)
}

func TestCombine_NothingFiredIsHold(t *testing.T) {
	agg := NewAggregator(AgreementKTimeframes, DefaultThresholds())
	silent := Score{ModuleScore: models.ModuleScore{Name: "15m", Weight: Weight15m}}
	silent.ADX = math.NaN()
	silent.VolumeRatio = math.NaN()

	got := agg.Combine([]Score{silent})
	assert.Equal(t, models.BandHold, got.Band)
	assert.Zero(t, got.Score)
	assert.Zero(t, got.Confidence)
}

func TestClassify_BandCuts(t *testing.T) {
	tests := []struct {
		name      string
		score     float64 // on the [-1,1] scale
		agreement float64
		want      models.SignalBand
	}{
		{"ultimate yes", 0.9, 0.9, models.BandUltimateYes},
		{"ultimate yes needs agreement", 0.9, 0.5, models.BandStrongYes},
		{"strong yes", 0.5, 0.5, models.BandStrongYes},
		{"yes", 0.2, 0.5, models.BandYes},
		{"hold", 0.0, 0.5, models.BandHold},
		{"no", -0.2, 0.5, models.BandNo},
		{"strong no", -0.5, 0.5, models.BandStrongNo},
		{"ultimate no", -0.9, 0.9, models.BandUltimateNo},
		{"boundary resolves down", 0.4, 0.5, models.BandYes}, // u exactly 0.70
		{"lower boundary resolves up", -0.4, 0.5, models.BandNo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.score, tt.agreement))
		})
	}
}

func TestConfidence_Bonuses(t *testing.T) {
	agg := NewAggregator(AgreementKTimeframes, DefaultThresholds())

	in := Input("15m", 0.6, Weight15m)
	in.ADX = 30
	in.VolumeRatio = 200

	got := agg.Combine([]Score{in})
	// base 60 + agreement 20 + trending ADX 10 + volume 10.
	assert.InDelta(t, 100.0, got.Confidence, 1e-9)

	weak := Input("15m", 0.6, Weight15m)
	weak.ADX = 15
	got = agg.Combine([]Score{weak})
	// base 60 + agreement 20 - weak trend 10.
	assert.InDelta(t, 70.0, got.Confidence, 1e-9)
}

func TestCombine_ClampsConfidence(t *testing.T) {
	agg := NewAggregator(AgreementKTimeframes, DefaultThresholds())

	in := Input("15m", 0.9, Weight15m)
	in.ADX = 50
	in.VolumeRatio = 400
	got := agg.Combine([]Score{in})

	assert.LessOrEqual(t, got.Confidence, 100.0)
	assert.GreaterOrEqual(t, got.Confidence, 0.0)
}
