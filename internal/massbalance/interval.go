package massbalance

import "math"

// IntervalEstimator produces a confidence band around a result.
type IntervalEstimator interface {
	Interval(value float64) (lower, upper float64)
}

// RelativeBand scales the half-width with the result: |v| × RSD% × Multiplier.
type RelativeBand struct {
	RSD        float64
	Multiplier float64
}

// Interval implements IntervalEstimator.
func (b RelativeBand) Interval(v float64) (float64, float64) {
	half := math.Abs(v) * b.RSD / 100 * b.Multiplier
	return v - half, v + half
}

// AbsoluteBand uses a fixed half-width of Uncertainty × Multiplier percentage points.
type AbsoluteBand struct {
	Uncertainty float64
	Multiplier  float64
}

// Interval implements IntervalEstimator.
func (b AbsoluteBand) Interval(v float64) (float64, float64) {
	half := b.Uncertainty * b.Multiplier
	return v - half, v + half
}

// Estimator builds the configured estimator.
func (p IntervalPolicy) Estimator() IntervalEstimator {
	if p.Model == IntervalAbsolute {
		return AbsoluteBand{Uncertainty: p.Uncertainty, Multiplier: p.Multiplier}
	}
	return RelativeBand{RSD: p.RSD, Multiplier: p.Multiplier}
}

// Assessment is a method result with its band and risk.
type Assessment struct {
	Method Method
	Value  float64
	Lower  float64
	Upper  float64
	Risk   Risk
}

// Assess bands and classifies a single result.
func Assess(method Method, v float64, est IntervalEstimator, risk RiskPolicy) Assessment {
	lower, upper := est.Interval(v)
	return Assessment{Method: method, Value: v, Lower: lower, Upper: upper, Risk: risk.Classify(v)}
}
