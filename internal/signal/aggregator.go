package signal

import (
	"math"

	"github.com/oddsight/oddsight/internal/models"
)

// Agreement sensitivity constants. The timeframe site uses a steeper penalty
// than the module site because timeframe scores sample the same market and
// should rarely disagree.
const (
	AgreementKTimeframes = 4.0
	AgreementKModules    = 2.0
)

// Standard timeframe weights: the middle timeframe dominates.
const (
	Weight5m  = 0.25
	Weight15m = 0.50
	Weight1h  = 0.25
)

// Module weights for the five analysis modules.
const (
	WeightTechnical   = 0.35
	WeightML          = 0.20
	WeightSentiment   = 0.20
	WeightCorrelation = 0.15
	WeightFunding     = 0.10
)

// Aggregator combines per-timeframe or per-module scores into one composite
// signal with an agreement metric, a discrete band and a confidence figure.
type Aggregator struct {
	th Thresholds
	// agreementK scales how hard score variance reduces agreement.
	agreementK float64
}

// NewAggregator builds an aggregator for one aggregation site.
func NewAggregator(agreementK float64, th Thresholds) *Aggregator {
	return &Aggregator{th: th, agreementK: agreementK}
}

// Combine weights the fired inputs into a composite. Inputs that did not
// fire are excluded from both the weighted average and the agreement
// variance, so missing modules never drag the composite toward neutral.
func (a *Aggregator) Combine(inputs []Score) models.CompositeSignal {
	var (
		weightedSum float64
		totalWeight float64
		fired       []float64
		modules     []models.ModuleScore
	)
	for _, in := range inputs {
		modules = append(modules, in.ModuleScore)
		if !in.Fired {
			continue
		}
		weightedSum += in.ModuleScore.Score * in.Weight
		totalWeight += in.Weight
		fired = append(fired, in.ModuleScore.Score)
	}

	out := models.CompositeSignal{Band: models.BandHold, Modules: modules}
	if totalWeight == 0 {
		return out
	}

	out.Score = weightedSum / totalWeight
	out.Agreement = a.agreement(fired)
	out.Band = classify(out.Score, out.Agreement)
	out.Confidence = a.confidence(inputs, out.Agreement)
	return out
}

// agreement maps score variance onto [0,1].
func (a *Aggregator) agreement(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	avg := mean(scores)
	variance := 0.0
	for _, s := range scores {
		d := s - avg
		variance += d * d
	}
	variance /= float64(len(scores))
	return math.Max(0, math.Min(1, 1-a.agreementK*variance))
}

// classify maps the composite score onto the ordered band table. Cuts are
// strict so an exact boundary value lands in the lower-confidence band, and
// the outermost bands additionally require high agreement.
func classify(score, agreement float64) models.SignalBand {
	// Band cuts are defined on the [0,1] scale.
	u := (score + 1) / 2
	switch {
	case u > 0.85 && agreement > 0.8:
		return models.BandUltimateYes
	case u < 0.15 && agreement > 0.8:
		return models.BandUltimateNo
	case u > 0.70:
		return models.BandStrongYes
	case u < 0.30:
		return models.BandStrongNo
	case u > 0.55:
		return models.BandYes
	case u < 0.45:
		return models.BandNo
	default:
		return models.BandHold
	}
}

// confidence scores how much to trust the composite, from the agreement
// between modules, the trend regime and volume confirmation.
func (a *Aggregator) confidence(inputs []Score, agreement float64) float64 {
	const base = 60.0

	conf := base + agreement*20

	if adx := averageADX(inputs); !math.IsNaN(adx) {
		switch {
		case adx < 20:
			conf -= 10
		case adx <= 25:
			conf += 5
		case adx <= 40:
			conf += 10
		default:
			conf += 15
		}
	}

	for _, in := range inputs {
		if !math.IsNaN(in.VolumeRatio) && in.VolumeRatio > a.th.VolumeSpike {
			conf += 10
			break
		}
	}

	return math.Max(0, math.Min(100, conf))
}

func averageADX(inputs []Score) float64 {
	sum, n := 0.0, 0
	for _, in := range inputs {
		if !math.IsNaN(in.ADX) {
			sum += in.ADX
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
