package massbalance

import (
	"errors"
	"fmt"
)

// Interval models understood by IntervalPolicy.
const (
	IntervalRelative = "relative"
	IntervalAbsolute = "absolute"
)

// Stoichiometric fallbacks for conditions without a defined mass shift.
const (
	FallbackLambda = "lambda"
	FallbackOmega  = "omega"
)

// Policy gathers every threshold and constant of the calculation model.
// The workbook formulas are generated from the same values.
type Policy struct {
	Risk          RiskPolicy          `mapstructure:"risk"`
	Recommend     RecommendPolicy     `mapstructure:"recommend"`
	Status        StatusPolicy        `mapstructure:"status"`
	Interval      IntervalPolicy      `mapstructure:"interval"`
	Stoichiometry StoichiometryPolicy `mapstructure:"stoichiometry"`
	Diagnostic    DiagnosticPolicy    `mapstructure:"diagnostic"`
}

// RiskPolicy bounds the LOW and MODERATE bands; anything outside is HIGH.
type RiskPolicy struct {
	LowMin      float64 `mapstructure:"low_min"`
	LowMax      float64 `mapstructure:"low_max"`
	ModerateMin float64 `mapstructure:"moderate_min"`
	ModerateMax float64 `mapstructure:"moderate_max"`
}

// RecommendPolicy holds the degradation bands used to pick a method.
type RecommendPolicy struct {
	LowDegradation  float64 `mapstructure:"low_degradation"`
	RatioMin        float64 `mapstructure:"ratio_min"`
	RatioMax        float64 `mapstructure:"ratio_max"`
	HighDegradation float64 `mapstructure:"high_degradation"`
}

// StatusPolicy holds the cut-offs on the recommended value.
type StatusPolicy struct {
	PassMin  float64 `mapstructure:"pass_min"`
	AlertMin float64 `mapstructure:"alert_min"`
}

// IntervalPolicy configures the heuristic confidence band.
type IntervalPolicy struct {
	Model       string  `mapstructure:"model"`
	RSD         float64 `mapstructure:"rsd"`
	Uncertainty float64 `mapstructure:"uncertainty"`
	Multiplier  float64 `mapstructure:"multiplier"`
}

// StoichiometryPolicy configures the S factor.
type StoichiometryPolicy struct {
	HydrolysisMass float64 `mapstructure:"hydrolysis_mass"`
	OxidationMass  float64 `mapstructure:"oxidation_mass"`
	Fallback       string  `mapstructure:"fallback"`
}

// DiagnosticPolicy configures the diagnostic heuristics.
type DiagnosticPolicy struct {
	AMBFloor        float64 `mapstructure:"amb_floor"`
	UVSilentLambda  float64 `mapstructure:"uv_silent_lambda"`
	AnalyticalError float64 `mapstructure:"analytical_error"`
}

// DefaultPolicy returns the thresholds used by the QC lab.
func DefaultPolicy() Policy {
	return Policy{
		Risk: RiskPolicy{LowMin: 98, LowMax: 102, ModerateMin: 95, ModerateMax: 105},
		Recommend: RecommendPolicy{
			LowDegradation:  2,
			RatioMin:        5,
			RatioMax:        20,
			HighDegradation: 20,
		},
		Status:        StatusPolicy{PassMin: 95, AlertMin: 90},
		Interval:      IntervalPolicy{Model: IntervalRelative, RSD: 2, Uncertainty: 2.5, Multiplier: 2},
		Stoichiometry: StoichiometryPolicy{HydrolysisMass: 18, OxidationMass: 16, Fallback: FallbackLambda},
		Diagnostic:    DiagnosticPolicy{AMBFloor: 95, UVSilentLambda: 1.2, AnalyticalError: 2.5},
	}
}

// Validate checks that bands nest and constants are usable.
func (p Policy) Validate() error {
	r := p.Risk
	if !(r.ModerateMin <= r.LowMin && r.LowMin <= r.LowMax && r.LowMax <= r.ModerateMax) {
		return fmt.Errorf("policy.risk: bands must satisfy moderate_min <= low_min <= low_max <= moderate_max")
	}
	rec := p.Recommend
	if rec.RatioMin > rec.RatioMax {
		return fmt.Errorf("policy.recommend.ratio_min must not exceed ratio_max")
	}
	if rec.LowDegradation < 0 || rec.HighDegradation < 0 {
		return errors.New("policy.recommend: degradation thresholds cannot be negative")
	}
	if p.Status.AlertMin > p.Status.PassMin {
		return fmt.Errorf("policy.status.alert_min must not exceed pass_min")
	}
	switch p.Interval.Model {
	case IntervalRelative:
		if p.Interval.RSD < 0 {
			return errors.New("policy.interval.rsd cannot be negative")
		}
	case IntervalAbsolute:
		if p.Interval.Uncertainty < 0 {
			return errors.New("policy.interval.uncertainty cannot be negative")
		}
	default:
		return fmt.Errorf("policy.interval.model %q not supported", p.Interval.Model)
	}
	if p.Interval.Multiplier < 0 {
		return errors.New("policy.interval.multiplier cannot be negative")
	}
	switch p.Stoichiometry.Fallback {
	case FallbackLambda, FallbackOmega:
	default:
		return fmt.Errorf("policy.stoichiometry.fallback %q not supported", p.Stoichiometry.Fallback)
	}
	return nil
}

// Classify maps a result onto LOW/MODERATE/HIGH. NaN is HIGH.
func (r RiskPolicy) Classify(v float64) Risk {
	if v >= r.LowMin && v <= r.LowMax {
		return RiskLow
	}
	if v >= r.ModerateMin && v <= r.ModerateMax {
		return RiskModerate
	}
	return RiskHigh
}

// Classify maps the recommended value onto PASS/ALERT/OOS.
func (s StatusPolicy) Classify(v float64) Status {
	switch {
	case v >= s.PassMin:
		return StatusPass
	case v >= s.AlertMin:
		return StatusAlert
	default:
		return StatusOOS
	}
}
