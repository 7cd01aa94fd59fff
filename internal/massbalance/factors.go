package massbalance

// Factors are the response and molar corrections applied to degradants.
type Factors struct {
	Lambda float64
	Omega  float64
	S      float64
}

// ComputeFactors derives lambda, omega and the stoichiometric factor.
// Missing or zero divisors yield a neutral factor of 1.
func ComputeFactors(rrf, parentMW, degradantMW float64, stress StressCondition, p StoichiometryPolicy) Factors {
	lambda := 1.0
	if rrf > 0 {
		lambda = 1 / rrf
	}

	omega := 1.0
	massesKnown := parentMW > 0 && degradantMW > 0
	if massesKnown {
		omega = degradantMW / parentMW
	}

	var s float64
	switch stress.Normalize() {
	case StressAcid, StressBase:
		s = massShift(parentMW, degradantMW, p.HydrolysisMass, massesKnown)
	case StressOxidative:
		s = massShift(parentMW, degradantMW, p.OxidationMass, massesKnown)
	default:
		// Thermal and Photolytic have no pathway mass shift and use the configured fallback.
		if p.Fallback == FallbackOmega {
			s = omega
		} else {
			s = lambda
		}
	}

	return Factors{Lambda: lambda, Omega: omega, S: s}
}

func massShift(parentMW, degradantMW, added float64, known bool) float64 {
	if !known {
		return 1
	}
	return (parentMW + added) / degradantMW
}
