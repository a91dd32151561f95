// Package calibration maps composite scores to probabilities and learns an
// affine correction from resolved outcomes.
package calibration

import (
	"math"
	"sync/atomic"
	"time"
)

// Params is one immutable set of affine calibration parameters. A refit
// replaces the whole struct, never one field.
type Params struct {
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	FittedAt  time.Time `json:"fitted_at,omitempty"`
	Samples   int       `json:"samples,omitempty"`
}

// DefaultParams is the identity calibration used until a fit exists.
func DefaultParams() Params {
	return Params{Slope: 1, Intercept: 0}
}

// RawProbability maps a directional score in [-1,1] to a raw probability via
// a steepened sigmoid, clipped to [0.05, 0.95] so no single cycle can claim
// certainty.
func RawProbability(score float64) float64 {
	p := 1 / (1 + math.Exp(-3*score))
	return math.Max(0.05, math.Min(0.95, p))
}

// Calibrator applies the current affine correction to raw probabilities.
// Parameters are swapped atomically so a reload can never be observed as a
// new slope with an old intercept.
type Calibrator struct {
	params atomic.Pointer[Params]
}

// NewCalibrator builds a calibrator with the given starting parameters.
func NewCalibrator(p Params) *Calibrator {
	c := &Calibrator{}
	c.params.Store(&p)
	return c
}

// Params returns a snapshot of the current parameters.
func (c *Calibrator) Params() Params {
	return *c.params.Load()
}

// SetParams swaps in a new parameter set for subsequent cycles. In-flight
// evaluations keep the snapshot they already read.
func (c *Calibrator) SetParams(p Params) {
	c.params.Store(&p)
}

// Calibrate converts a composite score into the raw and calibrated YES
// probabilities using one consistent parameter snapshot.
func (c *Calibrator) Calibrate(score float64) (raw, calibrated float64) {
	p := c.params.Load()
	raw = RawProbability(score)
	calibrated = math.Max(0, math.Min(1, p.Slope*raw+p.Intercept))
	return raw, calibrated
}
