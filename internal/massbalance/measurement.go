package massbalance

import (
	"fmt"
	"strings"
)

// StressCondition names the forced-degradation stress applied to a sample.
type StressCondition string

const (
	StressAcid       StressCondition = "Acid"
	StressBase       StressCondition = "Base"
	StressOxidative  StressCondition = "Oxidative"
	StressThermal    StressCondition = "Thermal"
	StressPhotolytic StressCondition = "Photolytic"
)

// StressConditions lists the supported conditions in display order.
var StressConditions = []StressCondition{StressAcid, StressBase, StressOxidative, StressThermal, StressPhotolytic}

// ParseStressCondition matches a condition case-insensitively.
func ParseStressCondition(v string) (StressCondition, error) {
	trimmed := strings.TrimSpace(v)
	for _, c := range StressConditions {
		if strings.EqualFold(trimmed, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown stress condition %q", v)
}

// Normalize returns the canonical spelling, or the input unchanged when it is not a known condition.
func (s StressCondition) Normalize() StressCondition {
	if c, err := ParseStressCondition(string(s)); err == nil {
		return c
	}
	return s
}

// Method identifies a mass balance calculation method.
type Method string

const (
	MethodSMB   Method = "SMB"
	MethodAMB   Method = "AMB"
	MethodRMB   Method = "RMB"
	MethodLKIMB Method = "LK-IMB"
	MethodCIMB  Method = "CIMB"
)

// AllMethods lists methods in order of increasing correction.
var AllMethods = []Method{MethodSMB, MethodAMB, MethodRMB, MethodLKIMB, MethodCIMB}

// Risk is the distance-from-100% classification of a result.
type Risk string

const (
	RiskLow      Risk = "LOW"
	RiskModerate Risk = "MODERATE"
	RiskHigh     Risk = "HIGH"
)

// Status is the QC verdict on the recommended value.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusAlert Status = "ALERT"
	StatusOOS   Status = "OOS"
)

// Measurement is one assay record. Absent numeric inputs are zero.
type Measurement struct {
	SampleID          string
	Analyst           string
	Stress            StressCondition
	InitialAPI        float64
	StressedAPI       float64
	InitialDegradant  float64
	StressedDegradant float64
	ParentMW          float64
	DegradantMW       float64
	RRF               float64
}

// DeltaAPI is the API lost under stress.
func (m Measurement) DeltaAPI() float64 {
	return m.InitialAPI - m.StressedAPI
}

// DeltaDegradant is the degradant formed under stress.
func (m Measurement) DeltaDegradant() float64 {
	return m.StressedDegradant - m.InitialDegradant
}

// DegradationPct expresses DeltaAPI relative to the initial assay.
func (m Measurement) DegradationPct() float64 {
	if m.InitialAPI == 0 {
		return 0
	}
	return m.DeltaAPI() / m.InitialAPI * 100
}
