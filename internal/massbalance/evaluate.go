package massbalance

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Result is the full evaluation of one measurement.
type Result struct {
	Measurement       Measurement
	Factors           Factors
	Methods           Methods
	Assessments       []Assessment
	DeltaAPI          float64
	DeltaDegradant    float64
	DegradationPct    float64
	DegradantRecovery float64
	ConfidenceIndex   float64
	Recommendation    Recommendation
	Diagnostic        Diagnostic
}

// Assessment returns the banded result for a method.
func (r Result) Assessment(method Method) Assessment {
	for _, a := range r.Assessments {
		if a.Method == method {
			return a
		}
	}
	return Assessment{Method: method, Risk: RiskHigh}
}

// Calculator evaluates measurements against a fixed policy.
type Calculator struct {
	policy    Policy
	estimator IntervalEstimator
}

// NewCalculator builds a calculator using the policy's interval model.
func NewCalculator(p Policy) *Calculator {
	return &Calculator{policy: p, estimator: p.Interval.Estimator()}
}

// WithEstimator returns a copy that bands results with est instead of the policy model.
func (c *Calculator) WithEstimator(est IntervalEstimator) *Calculator {
	clone := *c
	clone.estimator = est
	return &clone
}

// Policy exposes the policy in use.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Evaluate runs factors, methods, bands, recommendation and diagnostics.
func (c *Calculator) Evaluate(m Measurement) Result {
	m.Stress = m.Stress.Normalize()
	factors := ComputeFactors(m.RRF, m.ParentMW, m.DegradantMW, m.Stress, c.policy.Stoichiometry)
	methods := ComputeMethods(m, factors)

	assessments := make([]Assessment, 0, len(AllMethods))
	for _, method := range AllMethods {
		assessments = append(assessments, Assess(method, methods.Value(method), c.estimator, c.policy.Risk))
	}

	res := Result{
		Measurement:       m,
		Factors:           factors,
		Methods:           methods,
		Assessments:       assessments,
		DeltaAPI:          m.DeltaAPI(),
		DeltaDegradant:    m.DeltaDegradant(),
		DegradationPct:    m.DegradationPct(),
		DegradantRecovery: methods.RMB,
		ConfidenceIndex:   confidenceIndex(methods.AMB, c.policy.Diagnostic.AnalyticalError),
	}

	cimbRisk := res.Assessment(MethodCIMB).Risk
	res.Recommendation = Recommend(res.DegradationPct, cimbRisk, methods, c.policy)
	res.Diagnostic = Diagnose(res, c.policy)
	return res
}

func confidenceIndex(amb, analyticalError float64) float64 {
	gap := math.Abs(100 - amb)
	if gap == 0 {
		return 95
	}
	ci := 100 * (1 - analyticalError/gap)
	return math.Max(0, math.Min(100, ci))
}

// Diagnostic is a human-facing reading of a result.
type Diagnostic struct {
	Message   string
	Rationale string
}

// Diagnostic messages, checked in this order.
const (
	MsgHighRisk       = "HIGH RISK: Mass balance outside acceptable limits. Investigate potential analytical issues or undetected degradants."
	MsgVolatileLoss   = "Suspected volatile loss. Recommend headspace GC-MS analysis."
	MsgUVSilent       = "UV-silent degradant suspected. Consider CAD or CLND detection."
	MsgLowDegradation = "Low degradation level. AMB method appropriate."
	MsgAcceptable     = "Mass balance acceptable. Continue routine testing per ICH Q1A(R2)."
)

// Diagnose explains a result.
func Diagnose(r Result, p Policy) Diagnostic {
	cimb := r.Assessment(MethodCIMB)
	d := p.Diagnostic
	switch {
	case cimb.Risk == RiskHigh:
		return Diagnostic{
			Message: MsgHighRisk,
			Rationale: fmt.Sprintf("CIMB = %.2f%% (95%% CI: %.2f%% - %.2f%%). Risk level: %s. Immediate investigation required per ICH Q1A(R2).",
				cimb.Value, cimb.Lower, cimb.Upper, cimb.Risk),
		}
	case r.Methods.AMB < d.AMBFloor && r.Factors.Lambda == 1 && r.Factors.Omega == 1:
		return Diagnostic{Message: MsgVolatileLoss, Rationale: "Low mass balance with no correction factors suggests volatile degradation products."}
	case r.Methods.AMB < d.AMBFloor && r.Factors.Lambda > d.UVSilentLambda:
		return Diagnostic{Message: MsgUVSilent, Rationale: "High RRF correction suggests chromophore changes in the degradation pathway."}
	case r.DegradationPct < p.Recommend.LowDegradation:
		return Diagnostic{Message: MsgLowDegradation, Rationale: "Minimal degradation observed. Standard absolute method is sufficient."}
	case r.DegradationPct > p.Recommend.HighDegradation:
		return Diagnostic{
			Message: fmt.Sprintf("High degradation detected. CIMB recommended with %s risk level. Stoichiometric correction applied (S=%.2f).",
				cimb.Risk, r.Factors.S),
			Rationale: fmt.Sprintf("CIMB = %.2f%% ± %.2f%% (95%% CI). Pathway-specific corrections applied.",
				cimb.Value, (cimb.Upper-cimb.Lower)/2),
		}
	default:
		return Diagnostic{Message: MsgAcceptable, Rationale: "Results within acceptable limits. No anomalies detected."}
	}
}

// Round rounds half away from zero to the given number of places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
