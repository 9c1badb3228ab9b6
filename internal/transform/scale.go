// Package transform implements the linear amplitude transform applied
// to waveform records by both the batch scaler and the live relay.
package transform

import (
	"math"

	"github.com/ozym/slscale/internal/domain"
	"github.com/ozym/slscale/internal/ports"
)

// Scaler rewrites record samples as round-to-even(alpha + beta * x) and
// optionally overrides the channel orientation code. It is immutable for
// the process lifetime and safe to reuse across records.
type Scaler struct {
	alpha   float64
	beta    float64
	orient  byte
	encoder ports.Encoder
}

// NewScaler builds a scaler. An empty orient disables the orientation
// override. The encoder is used by Process to re-encode scaled records.
func NewScaler(alpha, beta float64, orient string, encoder ports.Encoder) *Scaler {
	s := &Scaler{alpha: alpha, beta: beta, encoder: encoder}
	if orient != "" {
		s.orient = orient[0]
	}
	return s
}

// Scale mutates the record in place and reports whether it is eligible
// for emission. Ineligible records (no samples, non-integer sample kind,
// or a zero rate) are dropped silently; the orientation override is
// still applied first, matching the reference behaviour.
func (s *Scaler) Scale(rec *domain.Record) bool {
	if s.orient != 0 {
		rec.SetOrientation(s.orient)
	}

	if rec.SampleCount < 1 {
		return false
	}
	if rec.SampleType != domain.SampleInteger {
		return false
	}
	if rec.SampleRate == 0.0 {
		return false
	}

	for i, x := range rec.Samples {
		rec.Samples[i] = clamp(math.RoundToEven(s.alpha + s.beta*float64(x)))
	}
	return true
}

// Process scales the record and, if it survives the eligibility checks,
// re-encodes it into transport blocks via the sink. It returns the
// number of samples packed; zero with a nil error means the record was
// dropped.
func (s *Scaler) Process(rec *domain.Record, sink ports.BlockSink) (int, error) {
	if !s.Scale(rec) {
		return 0, nil
	}
	return s.encoder.Encode(rec, sink)
}

// clamp saturates at the int32 range. The scaled product is computed in
// double precision, so values beyond the range are representable and
// must be pinned rather than wrapped.
func clamp(v float64) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
