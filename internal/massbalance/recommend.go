package massbalance

// Recommendation is the selected method, its value and the QC verdict.
type Recommendation struct {
	Method Method
	Value  float64
	Status Status
}

// Select picks the method for a degradation level. The checks run in order:
// low degradation, the ratio band, high degradation or HIGH CIMB risk, then LK-IMB.
func (p RecommendPolicy) Select(degradationPct float64, cimbRisk Risk) Method {
	switch {
	case degradationPct < p.LowDegradation:
		return MethodAMB
	case degradationPct >= p.RatioMin && degradationPct <= p.RatioMax:
		return MethodRMB
	case degradationPct > p.HighDegradation || cimbRisk == RiskHigh:
		return MethodCIMB
	default:
		return MethodLKIMB
	}
}

// Recommend selects a method and classifies its value.
func Recommend(degradationPct float64, cimbRisk Risk, methods Methods, p Policy) Recommendation {
	method := p.Recommend.Select(degradationPct, cimbRisk)
	value := methods.Value(method)
	return Recommendation{Method: method, Value: value, Status: p.Status.Classify(value)}
}
