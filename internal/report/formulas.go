package report

import (
	"fmt"
	"strconv"
	"strings"

	"mass-balance-reports/internal/massbalance"
)

// Formula builders. Every threshold comes from massbalance.Policy so the
// spreadsheet and the Go calculator classify identically.

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sheetRef(sheet, cell string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cell)
}

func lambdaFormula(rrf string) string {
	return fmt.Sprintf("=IF(%[1]s>0,1/%[1]s,1)", rrf)
}

func omegaFormula(parentMW, degradantMW string) string {
	return fmt.Sprintf("=IF(AND(%[1]s>0,%[2]s>0),%[2]s/%[1]s,1)", parentMW, degradantMW)
}

func stoichFormula(stress, parentMW, degradantMW, lambda, omega string, p massbalance.StoichiometryPolicy) string {
	shift := func(mass float64) string {
		return fmt.Sprintf("IF(AND(%[1]s>0,%[2]s>0),(%[1]s+%[3]s)/%[2]s,1)", parentMW, degradantMW, num(mass))
	}
	fallback := lambda
	if p.Fallback == massbalance.FallbackOmega {
		fallback = omega
	}
	return fmt.Sprintf("=IF(OR(%[1]s=%[2]s,%[1]s=%[3]s),%[4]s,IF(%[1]s=%[5]s,%[6]s,%[7]s))",
		stress,
		quote(string(massbalance.StressAcid)),
		quote(string(massbalance.StressBase)),
		shift(p.HydrolysisMass),
		quote(string(massbalance.StressOxidative)),
		shift(p.OxidationMass),
		fallback,
	)
}

func smbFormula(stressedAPI, stressedDeg string) string {
	return fmt.Sprintf("=%s+%s", stressedAPI, stressedDeg)
}

func ambFormula(initialAPI, stressedAPI string) string {
	return fmt.Sprintf("=IF(%[1]s=0,0,%[2]s/%[1]s*100)", initialAPI, stressedAPI)
}

func rmbFormula(deltaAPI, deltaDeg string) string {
	return fmt.Sprintf("=IF(%[1]s=0,0,%[2]s/%[1]s*100)", deltaAPI, deltaDeg)
}

func lkimbFormula(initialAPI, stressedAPI, stressedDeg, lambda, omega string) string {
	return fmt.Sprintf("=IF(%[1]s=0,0,(%[2]s+%[3]s*%[4]s*%[5]s)/%[1]s*100)", initialAPI, stressedAPI, stressedDeg, lambda, omega)
}

func cimbFormula(initialAPI, stressedAPI, stressedDeg, s string) string {
	return fmt.Sprintf("=IF(%[1]s=0,0,(%[2]s+%[3]s*%[4]s)/%[1]s*100)", initialAPI, stressedAPI, stressedDeg, s)
}

func degradationFormula(initialAPI, deltaAPI string) string {
	return fmt.Sprintf("=IF(%[1]s=0,0,%[2]s/%[1]s*100)", initialAPI, deltaAPI)
}

// halfWidth is the band half-width expression; spread is the RSD or uncertainty cell.
func halfWidth(value, spread, multiplier string, p massbalance.IntervalPolicy) string {
	if p.Model == massbalance.IntervalAbsolute {
		return fmt.Sprintf("%s*%s", spread, multiplier)
	}
	return fmt.Sprintf("ABS(%s)*%s/100*%s", value, spread, multiplier)
}

func lowerFormula(value, spread, multiplier string, p massbalance.IntervalPolicy) string {
	return fmt.Sprintf("=%s-%s", value, halfWidth(value, spread, multiplier, p))
}

func upperFormula(value, spread, multiplier string, p massbalance.IntervalPolicy) string {
	return fmt.Sprintf("=%s+%s", value, halfWidth(value, spread, multiplier, p))
}

func riskFormula(value string, r massbalance.RiskPolicy) string {
	return fmt.Sprintf("=IF(AND(%[1]s>=%[2]s,%[1]s<=%[3]s),%[4]s,IF(AND(%[1]s>=%[5]s,%[1]s<=%[6]s),%[7]s,%[8]s))",
		value, num(r.LowMin), num(r.LowMax), quote(string(massbalance.RiskLow)),
		num(r.ModerateMin), num(r.ModerateMax), quote(string(massbalance.RiskModerate)),
		quote(string(massbalance.RiskHigh)),
	)
}

func recommendFormula(degradation, cimbRisk string, p massbalance.RecommendPolicy) string {
	return fmt.Sprintf("=IF(%[1]s<%[2]s,%[3]s,IF(AND(%[1]s>=%[4]s,%[1]s<=%[5]s),%[6]s,IF(OR(%[1]s>%[7]s,%[8]s=%[9]s),%[10]s,%[11]s)))",
		degradation, num(p.LowDegradation), quote(string(massbalance.MethodAMB)),
		num(p.RatioMin), num(p.RatioMax), quote(string(massbalance.MethodRMB)),
		num(p.HighDegradation), cimbRisk, quote(string(massbalance.RiskHigh)),
		quote(string(massbalance.MethodCIMB)), quote(string(massbalance.MethodLKIMB)),
	)
}

// recommendedValueFormula picks the value cell matching the method named in method.
func recommendedValueFormula(method string, values map[massbalance.Method]string) string {
	expr := values[massbalance.MethodLKIMB]
	for _, m := range []massbalance.Method{massbalance.MethodCIMB, massbalance.MethodRMB, massbalance.MethodAMB, massbalance.MethodSMB} {
		expr = fmt.Sprintf("IF(%s=%s,%s,%s)", method, quote(string(m)), values[m], expr)
	}
	return "=" + expr
}

func statusFormula(value string, s massbalance.StatusPolicy) string {
	return fmt.Sprintf("=IF(%[1]s>=%[2]s,%[3]s,IF(%[1]s>=%[4]s,%[5]s,%[6]s))",
		value, num(s.PassMin), quote(string(massbalance.StatusPass)),
		num(s.AlertMin), quote(string(massbalance.StatusAlert)),
		quote(string(massbalance.StatusOOS)),
	)
}

func confidenceIndexFormula(amb, analyticalError string) string {
	return fmt.Sprintf("=IF(ABS(100-%[1]s)=0,95,MAX(0,MIN(100,100*(1-%[2]s/ABS(100-%[1]s)))))", amb, analyticalError)
}

type diagnosticRefs struct {
	CIMBRisk    string
	AMB         string
	Lambda      string
	Omega       string
	S           string
	Degradation string
}

func diagnosticFormula(refs diagnosticRefs, p massbalance.Policy) string {
	d := p.Diagnostic
	high := fmt.Sprintf(`"High degradation detected. CIMB recommended with "&%s&" risk level. Stoichiometric correction applied (S="&TEXT(%s,"0.00")&")."`,
		refs.CIMBRisk, refs.S)
	return fmt.Sprintf("=IF(%[1]s=%[2]s,%[3]s,IF(AND(%[4]s<%[5]s,%[6]s=1,%[7]s=1),%[8]s,IF(AND(%[4]s<%[5]s,%[6]s>%[9]s),%[10]s,IF(%[11]s<%[12]s,%[13]s,IF(%[11]s>%[14]s,%[15]s,%[16]s)))))",
		refs.CIMBRisk, quote(string(massbalance.RiskHigh)), quote(massbalance.MsgHighRisk),
		refs.AMB, num(d.AMBFloor), refs.Lambda, refs.Omega, quote(massbalance.MsgVolatileLoss),
		num(d.UVSilentLambda), quote(massbalance.MsgUVSilent),
		refs.Degradation, num(p.Recommend.LowDegradation), quote(massbalance.MsgLowDegradation),
		num(p.Recommend.HighDegradation), high,
		quote(massbalance.MsgAcceptable),
	)
}

// Human-readable band descriptions for the reference sheet.

func riskBandText(r massbalance.RiskPolicy) (low, moderate, high string) {
	low = fmt.Sprintf("LOW (%s-%s%%)", num(r.LowMin), num(r.LowMax))
	moderate = fmt.Sprintf("MODERATE (%s-%s%%, %s-%s%%)", num(r.ModerateMin), num(r.LowMin), num(r.LowMax), num(r.ModerateMax))
	high = fmt.Sprintf("HIGH (<%s%%, >%s%%)", num(r.ModerateMin), num(r.ModerateMax))
	return low, moderate, high
}

func stoichText(p massbalance.StoichiometryPolicy) string {
	fallback := "λ"
	if p.Fallback == massbalance.FallbackOmega {
		fallback = "ω"
	}
	return fmt.Sprintf("Acid/Base: (Parent MW+%s)/Deg MW; Oxidative: (Parent MW+%s)/Deg MW; otherwise %s",
		num(p.HydrolysisMass), num(p.OxidationMass), fallback)
}
