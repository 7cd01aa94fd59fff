package massbalance

// Methods holds the five mass balance percentages.
type Methods struct {
	SMB   float64
	AMB   float64
	RMB   float64
	LKIMB float64
	CIMB  float64
}

// ComputeMethods evaluates every method for a measurement. Zero divisors produce 0.
func ComputeMethods(m Measurement, f Factors) Methods {
	out := Methods{SMB: m.StressedAPI + m.StressedDegradant}

	if delta := m.DeltaAPI(); delta != 0 {
		out.RMB = m.DeltaDegradant() / delta * 100
	}

	if m.InitialAPI != 0 {
		out.AMB = m.StressedAPI / m.InitialAPI * 100
		out.LKIMB = (m.StressedAPI + m.StressedDegradant*f.Lambda*f.Omega) / m.InitialAPI * 100
		out.CIMB = (m.StressedAPI + m.StressedDegradant*f.S) / m.InitialAPI * 100
	}

	return out
}

// Value returns the result of a single method.
func (m Methods) Value(method Method) float64 {
	switch method {
	case MethodSMB:
		return m.SMB
	case MethodAMB:
		return m.AMB
	case MethodRMB:
		return m.RMB
	case MethodLKIMB:
		return m.LKIMB
	case MethodCIMB:
		return m.CIMB
	}
	return 0
}
