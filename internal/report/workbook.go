package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"mass-balance-reports/internal/massbalance"
)

// Sheet names, in workbook order.
const (
	SheetDataEntry    = "Data Entry"
	SheetCalculations = "Calculations"
	SheetDiagnostic   = "Diagnostic Report"
	SheetHistory      = "Calculation History"
	SheetAnalytics    = "Analytics Dashboard"
	SheetTrend        = "Trend Analysis"
	SheetReference    = "Reference Guide"
	SheetCompliance   = "Regulatory Compliance"
)

const timestampLayout = "2006-01-02 15:04:05"

// Entry is an evaluated calculation ready for rendering.
type Entry struct {
	ID        string
	Timestamp time.Time
	Result    massbalance.Result
}

// Options tunes rendering.
type Options struct {
	Title       string
	TrendPoints int
	Now         func() time.Time
}

// Renderer lays out workbooks whose formulas follow one policy.
type Renderer struct {
	policy massbalance.Policy
	opts   Options
}

// NewRenderer builds a renderer for policy p.
func NewRenderer(p massbalance.Policy, opts Options) *Renderer {
	if opts.Title == "" {
		opts.Title = "Mass Balance Calculator"
	}
	if opts.TrendPoints <= 0 {
		opts.TrendPoints = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{policy: p, opts: opts}
}

// RenderFull builds the complete workbook for current, with history feeding
// the history, analytics, trend and compliance sheets. History is newest first.
func (r *Renderer) RenderFull(current Entry, history []Entry) (*excelize.File, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetDataEntry); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetCalculations, SheetDiagnostic, SheetHistory, SheetAnalytics, SheetTrend, SheetReference, SheetCompliance} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
	}

	inputs, err := r.writeDataEntry(f, st, current)
	if err == nil {
		var calc *engine
		calc, err = r.writeCalculations(f, st, inputs)
		if err == nil {
			err = r.writeDiagnostic(f, st, current, calc)
		}
	}
	if err == nil {
		err = r.writeHistory(f, st, history)
	}
	if err == nil {
		err = r.writeAnalytics(f, st, len(history))
	}
	if err == nil {
		err = r.writeTrend(f, st, history)
	}
	if err == nil {
		err = r.writeReference(f, st)
	}
	if err == nil {
		err = r.writeCompliance(f, st, current, history)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// RenderHistory builds a workbook holding only the history table.
func (r *Renderer) RenderHistory(history []Entry) (*excelize.File, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err == nil {
		err = f.SetSheetName("Sheet1", SheetHistory)
	}
	if err == nil {
		err = r.writeHistory(f, st, history)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Save writes f to path, creating parent directories, and closes it.
func Save(f *excelize.File, path string) error {
	defer f.Close()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Data Entry rows.
const (
	rowInitialAPI = iota + 4
	rowStressedAPI
	rowInitialDeg
	rowStressedDeg
	rowParentMW
	rowDegradantMW
	rowRRF
	rowStress
	rowSampleID
	rowAnalyst
	rowDate
	rowSpread
	rowMultiplier
	rowAnalyticalError
)

const linkCell = "A20"

// inputRefs are absolute references to the Data Entry inputs.
type inputRefs struct {
	initialAPI, stressedAPI     string
	initialDeg, stressedDeg     string
	parentMW, degradantMW, rrf  string
	stress                      string
	spread, multiplier, anError string
}

func (r *Renderer) writeDataEntry(f *excelize.File, st *styles, current Entry) (inputRefs, error) {
	w := newSheetWriter(f, SheetDataEntry)
	m := current.Result.Measurement
	ip := r.policy.Interval

	w.merge("A1", "D1", r.opts.Title+" - Data Entry", st.title)
	w.height(1, 28)
	w.row("A3", []any{"Parameter", "Value", "Unit"}, st.header)

	spreadLabel, spread := "Assumed RSD", ip.RSD
	if ip.Model == massbalance.IntervalAbsolute {
		spreadLabel, spread = "Analytical Uncertainty", ip.Uncertainty
	}

	numeric := []struct {
		row   int
		label string
		value float64
		unit  string
	}{
		{rowInitialAPI, "Initial API", m.InitialAPI, "%"},
		{rowStressedAPI, "Stressed API", m.StressedAPI, "%"},
		{rowInitialDeg, "Initial Degradants", m.InitialDegradant, "%"},
		{rowStressedDeg, "Stressed Degradants", m.StressedDegradant, "%"},
		{rowParentMW, "Parent MW", m.ParentMW, "g/mol"},
		{rowDegradantMW, "Degradant MW", m.DegradantMW, "g/mol"},
		{rowRRF, "RRF", m.RRF, ""},
		{rowSpread, spreadLabel, spread, "%"},
		{rowMultiplier, "CI Multiplier", ip.Multiplier, ""},
		{rowAnalyticalError, "Analytical Error", r.policy.Diagnostic.AnalyticalError, "%"},
	}
	for _, in := range numeric {
		w.set(cellName("A", in.row), in.label, st.label)
		w.set(cellName("B", in.row), in.value, st.input)
		w.set(cellName("C", in.row), in.unit, st.text)
	}

	date := current.Timestamp
	if date.IsZero() {
		date = r.opts.Now()
	}
	text := []struct {
		row   int
		label string
		value string
	}{
		{rowStress, "Stress Condition", string(m.Stress)},
		{rowSampleID, "Sample ID", m.SampleID},
		{rowAnalyst, "Analyst", m.Analyst},
		{rowDate, "Analysis Date", date.Format("2006-01-02")},
	}
	for _, in := range text {
		w.set(cellName("A", in.row), in.label, st.label)
		w.set(cellName("B", in.row), in.value, st.inputText)
		w.set(cellName("C", in.row), "", st.text)
	}

	w.do(func() error {
		dv := excelize.NewDataValidation(true)
		dv.Sqref = cellName("B", rowStress)
		options := make([]string, 0, len(massbalance.StressConditions))
		for _, s := range massbalance.StressConditions {
			options = append(options, string(s))
		}
		if err := dv.SetDropList(options); err != nil {
			return err
		}
		dv.SetError(excelize.DataValidationErrorStyleStop, "Invalid stress condition", "Pick a stress condition from the list.")
		return f.AddDataValidation(SheetDataEntry, dv)
	})

	w.merge("E3", "H12", strings.Join([]string{
		"Instructions",
		"1. Enter assay values in the yellow cells.",
		"2. Pick the stress condition from the drop-down.",
		"3. RRF, Parent MW and Degradant MW enable correction factors; leave 0 when unknown.",
		"4. Results recalculate on the Calculations and Diagnostic Report sheets.",
	}, "\n"), st.wrap)

	w.set(linkCell, "View Diagnostic Report", st.link)
	w.do(func() error {
		return f.SetCellHyperLink(SheetDataEntry, linkCell, sheetRef(SheetDiagnostic, "A1"), "Location")
	})

	w.widths(map[string]float64{"A": 26, "B": 18, "C": 10, "E": 16, "F": 16, "G": 16, "H": 16})

	ref := func(row int) string { return sheetRef(SheetDataEntry, absCell("B", row)) }
	return inputRefs{
		initialAPI:  ref(rowInitialAPI),
		stressedAPI: ref(rowStressedAPI),
		initialDeg:  ref(rowInitialDeg),
		stressedDeg: ref(rowStressedDeg),
		parentMW:    ref(rowParentMW),
		degradantMW: ref(rowDegradantMW),
		rrf:         ref(rowRRF),
		stress:      ref(rowStress),
		spread:      ref(rowSpread),
		multiplier:  ref(rowMultiplier),
		anError:     ref(rowAnalyticalError),
	}, w.err
}

// engine appends labelled formula rows to the Calculations sheet.
type engine struct {
	w     *sheetWriter
	row   int
	refs  map[string]string
	cells map[string]string
}

func (e *engine) add(key, label, formula string, style int) string {
	e.row++
	cell := cellName("B", e.row)
	e.w.set(cellName("A", e.row), label, 0)
	e.w.formula(cell, formula, style)
	e.cells[key] = cell
	e.refs[key] = sheetRef(SheetCalculations, absCell("B", e.row))
	return e.refs[key]
}

func methodKey(m massbalance.Method) string {
	return strings.ToLower(strings.ReplaceAll(string(m), "-", ""))
}

// Calculation keys.
const (
	keyDeltaAPI        = "delta_api"
	keyDeltaDeg        = "delta_deg"
	keyLambda          = "lambda"
	keyOmega           = "omega"
	keyS               = "s"
	keyDegradation     = "degradation"
	keyRecMethod       = "recommended_method"
	keyRecValue        = "recommended_value"
	keyStatus          = "status"
	keyConfidenceIndex = "confidence_index"
	keyDiagnostic      = "diagnostic"
)

func lowerKey(m massbalance.Method) string { return "lower_" + methodKey(m) }
func upperKey(m massbalance.Method) string { return "upper_" + methodKey(m) }
func riskKey(m massbalance.Method) string  { return "risk_" + methodKey(m) }

func (r *Renderer) writeCalculations(f *excelize.File, st *styles, in inputRefs) (*engine, error) {
	w := newSheetWriter(f, SheetCalculations)
	w.row("A1", []any{"Quantity", "Value"}, st.header)
	e := &engine{w: w, row: 1, refs: map[string]string{}, cells: map[string]string{}}
	p := r.policy

	dAPI := e.add(keyDeltaAPI, "Delta API", fmt.Sprintf("=%s-%s", in.initialAPI, in.stressedAPI), st.calc)
	dDeg := e.add(keyDeltaDeg, "Delta Degradants", fmt.Sprintf("=%s-%s", in.stressedDeg, in.initialDeg), st.calc)
	lambda := e.add(keyLambda, "Lambda (1/RRF)", lambdaFormula(in.rrf), st.factor)
	omega := e.add(keyOmega, "Omega (Deg MW/Parent MW)", omegaFormula(in.parentMW, in.degradantMW), st.factor)
	s := e.add(keyS, "Stoichiometric Factor (S)", stoichFormula(in.stress, in.parentMW, in.degradantMW, lambda, omega, p.Stoichiometry), st.factor)

	values := map[massbalance.Method]string{
		massbalance.MethodSMB:   e.add(methodKey(massbalance.MethodSMB), "SMB (%)", smbFormula(in.stressedAPI, in.stressedDeg), st.calc),
		massbalance.MethodAMB:   e.add(methodKey(massbalance.MethodAMB), "AMB (%)", ambFormula(in.initialAPI, in.stressedAPI), st.calc),
		massbalance.MethodRMB:   e.add(methodKey(massbalance.MethodRMB), "RMB (%)", rmbFormula(dAPI, dDeg), st.calc),
		massbalance.MethodLKIMB: e.add(methodKey(massbalance.MethodLKIMB), "LK-IMB (%)", lkimbFormula(in.initialAPI, in.stressedAPI, in.stressedDeg, lambda, omega), st.calc),
		massbalance.MethodCIMB:  e.add(methodKey(massbalance.MethodCIMB), "CIMB (%)", cimbFormula(in.initialAPI, in.stressedAPI, in.stressedDeg, s), st.calc),
	}

	for _, m := range massbalance.AllMethods {
		v := values[m]
		e.add(lowerKey(m), string(m)+" Lower CI", lowerFormula(v, in.spread, in.multiplier, p.Interval), st.calc)
		e.add(upperKey(m), string(m)+" Upper CI", upperFormula(v, in.spread, in.multiplier, p.Interval), st.calc)
		e.add(riskKey(m), string(m)+" Risk", riskFormula(v, p.Risk), st.text)
	}

	deg := e.add(keyDegradation, "Degradation (%)", degradationFormula(in.initialAPI, dAPI), st.calc)
	method := e.add(keyRecMethod, "Recommended Method", recommendFormula(deg, e.refs[riskKey(massbalance.MethodCIMB)], p.Recommend), st.text)
	recValue := e.add(keyRecValue, "Recommended Value (%)", recommendedValueFormula(method, values), st.calc)
	e.add(keyStatus, "Status", statusFormula(recValue, p.Status), st.text)
	e.add(keyConfidenceIndex, "Confidence Index", confidenceIndexFormula(values[massbalance.MethodAMB], in.anError), st.calc)
	e.add(keyDiagnostic, "Diagnostic", diagnosticFormula(diagnosticRefs{
		CIMBRisk:    e.refs[riskKey(massbalance.MethodCIMB)],
		AMB:         values[massbalance.MethodAMB],
		Lambda:      lambda,
		Omega:       omega,
		S:           s,
		Degradation: deg,
	}, p), st.wrap)

	w.widths(map[string]float64{"A": 30, "B": 60})
	return e, w.err
}

func (r *Renderer) writeDiagnostic(f *excelize.File, st *styles, current Entry, calc *engine) error {
	w := newSheetWriter(f, SheetDiagnostic)
	w.hideGrid()
	m := current.Result.Measurement

	w.merge("B2", "G3", "Mass Balance Diagnostic Report", st.title)
	w.set("B4", fmt.Sprintf("Sample: %s | Stress: %s | Analyst: %s | Generated: %s",
		m.SampleID, m.Stress, m.Analyst, r.opts.Now().Format(timestampLayout)), 0)

	w.row("B6", []any{"Method", "Result (%)", "Lower CI", "Upper CI", "Risk", "Correction"}, st.header)
	corrections := map[massbalance.Method]string{
		massbalance.MethodSMB:   "None",
		massbalance.MethodAMB:   "None",
		massbalance.MethodRMB:   "Relative",
		massbalance.MethodLKIMB: "λ × ω",
		massbalance.MethodCIMB:  "S",
	}
	for i, method := range massbalance.AllMethods {
		row := 7 + i
		w.set(cellName("B", row), string(method), st.label)
		w.formula(cellName("C", row), "="+calc.refs[methodKey(method)], st.calc)
		w.formula(cellName("D", row), "="+calc.refs[lowerKey(method)], st.calc)
		w.formula(cellName("E", row), "="+calc.refs[upperKey(method)], st.calc)
		w.formula(cellName("F", row), "="+calc.refs[riskKey(method)], st.text)
		w.set(cellName("G", row), corrections[method], st.text)
	}
	lastMethodRow := 6 + len(massbalance.AllMethods)
	w.conditional(fmt.Sprintf("F7:F%d", lastMethodRow), st.levelRules(
		string(massbalance.RiskLow), string(massbalance.RiskModerate), string(massbalance.RiskHigh)))

	summary := []struct {
		label string
		key   string
		style int
	}{
		{"Recommended Method", keyRecMethod, st.text},
		{"Recommended Value (%)", keyRecValue, st.calc},
		{"Degradation (%)", keyDegradation, st.calc},
		{"Confidence Index", keyConfidenceIndex, st.calc},
	}
	for i, item := range summary {
		row := 13 + i
		w.set(cellName("B", row), item.label, st.label)
		w.formula(cellName("C", row), "="+calc.refs[item.key], item.style)
	}

	w.merge("B18", "C19", "", st.title)
	w.formula("B18", "="+calc.refs[keyStatus], st.title)
	w.conditional("B18:C19", st.levelRules(
		string(massbalance.StatusPass), string(massbalance.StatusAlert), string(massbalance.StatusOOS)))
	w.merge("D18", "G19", "", st.wrap)
	w.formula("D18", "="+calc.refs[keyDiagnostic], st.wrap)

	w.row("B21", []any{"λ", "ω", "S"}, st.header)
	w.formula("B22", "="+calc.refs[keyLambda], st.factor)
	w.formula("C22", "="+calc.refs[keyOmega], st.factor)
	w.formula("D22", "="+calc.refs[keyS], st.factor)

	w.widths(map[string]float64{"A": 3, "B": 24, "C": 16, "D": 14, "E": 14, "F": 12, "G": 40})
	return w.err
}

// History table layout.
const (
	historyHeaderRow = 3
	historyFirstRow  = 4
)

var historyHeaders = []any{
	"Calc ID", "Date", "Sample ID", "Analyst", "Stress", "Initial API", "Stressed API",
	"Initial Deg", "Stressed Deg", "Method", "Result (%)", "Risk Level", "Status",
}

func (r *Renderer) writeHistory(f *excelize.File, st *styles, history []Entry) error {
	w := newSheetWriter(f, SheetHistory)
	w.merge("A1", "M1", "Calculation History", st.title)
	w.row(cellName("A", historyHeaderRow), historyHeaders, st.header)

	for i, entry := range history {
		row := historyFirstRow + i
		res := entry.Result
		m := res.Measurement
		rec := res.Recommendation
		risk := res.Assessment(rec.Method).Risk
		w.row(cellName("A", row), []any{
			entry.ShortID(),
			entry.Timestamp.Format(timestampLayout),
			m.SampleID,
			m.Analyst,
			string(m.Stress),
			m.InitialAPI,
			m.StressedAPI,
			m.InitialDegradant,
			m.StressedDegradant,
			string(rec.Method),
			massbalance.Round(rec.Value, 2),
			string(risk),
			string(rec.Status),
		}, st.text)
		w.style(cellName("L", row), cellName("L", row), st.levelStyle(string(risk)))
		w.style(cellName("M", row), cellName("M", row), st.levelStyle(string(rec.Status)))
	}
	if len(history) == 0 {
		w.set(cellName("A", historyFirstRow), "No calculations recorded.", 0)
	}

	w.widths(map[string]float64{
		"A": 12, "B": 20, "C": 16, "D": 14, "E": 12, "F": 12, "G": 12,
		"H": 12, "I": 12, "J": 10, "K": 12, "L": 12, "M": 10,
	})
	w.do(func() error {
		return f.SetPanes(SheetHistory, &excelize.Panes{
			Freeze:      true,
			YSplit:      historyHeaderRow,
			TopLeftCell: cellName("A", historyFirstRow),
			ActivePane:  "bottomLeft",
		})
	})
	return w.err
}

// ShortID returns the first eight characters of the ID for display.
func (e Entry) ShortID() string {
	if len(e.ID) <= 8 {
		return e.ID
	}
	return e.ID[:8]
}

// historyRange addresses one history column over n data rows.
func historyRange(col string, n int) string {
	if n < 1 {
		n = 1
	}
	return sheetRef(SheetHistory, fmt.Sprintf("%s:%s", absCell(col, historyFirstRow), absCell(col, historyFirstRow+n-1)))
}

func (r *Renderer) writeAnalytics(f *excelize.File, st *styles, n int) error {
	w := newSheetWriter(f, SheetAnalytics)
	w.merge("A1", "B1", "Analytics Dashboard", st.title)

	status := historyRange("M", n)
	w.row("A3", []any{"Metric", "Value"}, st.header)
	w.set("A4", "Total Calculations", st.label)
	w.formula("B4", fmt.Sprintf("=COUNTA(%s)", historyRange("B", n)), st.text)
	rates := []struct {
		label  string
		status massbalance.Status
	}{
		{"Pass Rate", massbalance.StatusPass},
		{"Alert Rate", massbalance.StatusAlert},
		{"OOS Rate", massbalance.StatusOOS},
	}
	for i, rate := range rates {
		row := 5 + i
		w.set(cellName("A", row), rate.label, st.label)
		w.formula(cellName("B", row), fmt.Sprintf("=IFERROR(COUNTIF(%s,%s)/$B$4,0)", status, quote(string(rate.status))), st.percent)
	}
	w.set("A8", "Average Result (%)", st.label)
	w.formula("B8", fmt.Sprintf("=IFERROR(AVERAGE(%s),0)", historyRange("K", n)), st.calc)

	w.row("A10", []any{"Method", "Uses"}, st.header)
	for i, method := range massbalance.AllMethods {
		row := 11 + i
		w.set(cellName("A", row), string(method), st.label)
		w.formula(cellName("B", row), fmt.Sprintf("=COUNTIF(%s,%s)", historyRange("J", n), quote(string(method))), st.text)
	}

	w.row("A17", []any{"Risk Level", "Count"}, st.header)
	for i, risk := range []massbalance.Risk{massbalance.RiskLow, massbalance.RiskModerate, massbalance.RiskHigh} {
		row := 18 + i
		w.set(cellName("A", row), string(risk), st.levelStyle(string(risk)))
		w.formula(cellName("B", row), fmt.Sprintf("=COUNTIF(%s,%s)", historyRange("L", n), quote(string(risk))), st.text)
	}

	w.do(func() error {
		return f.AddChart(SheetAnalytics, "D3", &excelize.Chart{
			Type: excelize.Pie,
			Series: []excelize.ChartSeries{{
				Name:       "Risk Distribution",
				Categories: sheetRef(SheetAnalytics, "$A$18:$A$20"),
				Values:     sheetRef(SheetAnalytics, "$B$18:$B$20"),
			}},
			Title:     []excelize.RichTextRun{{Text: "Risk Level Distribution"}},
			Legend:    excelize.ChartLegend{Position: "right"},
			PlotArea:  excelize.ChartPlotArea{ShowPercent: true},
			Dimension: excelize.ChartDimension{Width: 480, Height: 320},
		})
	})

	w.widths(map[string]float64{"A": 24, "B": 14})
	return w.err
}

// trendWindow returns the newest n entries of a newest-first history, oldest first.
func trendWindow(history []Entry, n int) []Entry {
	if n > len(history) {
		n = len(history)
	}
	out := make([]Entry, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, history[i])
	}
	return out
}

func (r *Renderer) writeTrend(f *excelize.File, st *styles, history []Entry) error {
	w := newSheetWriter(f, SheetTrend)
	w.merge("A1", "E1", "Trend Analysis", st.title)
	w.row("A3", []any{"Date", "Sample ID", "Stressed API", "Stressed Deg", "CIMB (%)"}, st.header)

	window := trendWindow(history, r.opts.TrendPoints)
	if len(window) == 0 {
		w.set("A4", "No calculations recorded.", 0)
		return w.err
	}
	for i, entry := range window {
		m := entry.Result.Measurement
		w.row(cellName("A", 4+i), []any{
			entry.Timestamp.Format("2006-01-02"),
			m.SampleID,
			m.StressedAPI,
			m.StressedDegradant,
			massbalance.Round(entry.Result.Methods.CIMB, 2),
		}, st.text)
	}
	last := 3 + len(window)
	categories := sheetRef(SheetTrend, fmt.Sprintf("$A$4:$A$%d", last))
	series := func(name, col string) excelize.ChartSeries {
		return excelize.ChartSeries{
			Name:       name,
			Categories: categories,
			Values:     sheetRef(SheetTrend, fmt.Sprintf("$%s$4:$%s$%d", col, col, last)),
			Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
		}
	}
	w.do(func() error {
		return f.AddChart(SheetTrend, "G3", &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{
				series("Stressed API", "C"),
				series("Stressed Deg", "D"),
				series("CIMB", "E"),
			},
			Title:     []excelize.RichTextRun{{Text: "Mass Balance Trend"}},
			Legend:    excelize.ChartLegend{Position: "bottom"},
			Dimension: excelize.ChartDimension{Width: 640, Height: 360},
		})
	})

	w.widths(map[string]float64{"A": 14, "B": 16, "C": 14, "D": 14, "E": 12})
	return w.err
}

func (r *Renderer) writeReference(f *excelize.File, st *styles) error {
	w := newSheetWriter(f, SheetReference)
	p := r.policy
	w.merge("A1", "C1", "Reference Guide", st.title)

	w.row("A3", []any{"Method", "Formula", "Use When"}, st.header)
	methods := [][]any{
		{"SMB", "Stressed API + Stressed Degradants", "Quick screen"},
		{"AMB", "Stressed API / Initial API × 100", fmt.Sprintf("Degradation < %s%%", num(p.Recommend.LowDegradation))},
		{"RMB", "ΔDegradants / ΔAPI × 100", fmt.Sprintf("Degradation %s-%s%%", num(p.Recommend.RatioMin), num(p.Recommend.RatioMax))},
		{"LK-IMB", "(Stressed API + Stressed Deg × λ × ω) / Initial API × 100", "Otherwise"},
		{"CIMB", "(Stressed API + Stressed Deg × S) / Initial API × 100", fmt.Sprintf("Degradation > %s%% or CIMB HIGH risk", num(p.Recommend.HighDegradation))},
	}
	for i, row := range methods {
		w.row(cellName("A", 4+i), row, st.wrap)
	}

	low, moderate, high := riskBandText(p.Risk)
	w.row("A10", []any{"Risk Level", "Band", "Action"}, st.header)
	w.row("A11", []any{"LOW", low, "Routine"}, st.wrap)
	w.row("A12", []any{"MODERATE", moderate, "Review"}, st.wrap)
	w.row("A13", []any{"HIGH", high, "Investigate"}, st.wrap)
	w.style("A11", "A11", st.riskLow)
	w.style("A12", "A12", st.riskModerate)
	w.style("A13", "A13", st.riskHigh)

	w.row("A15", []any{"Factor", "Definition", "Default"}, st.header)
	w.row("A16", []any{"λ", "1 / RRF", "1 when RRF ≤ 0"}, st.wrap)
	w.row("A17", []any{"ω", "Degradant MW / Parent MW", "1 when either MW ≤ 0"}, st.wrap)
	w.row("A18", []any{"S", stoichText(p.Stoichiometry), "1 when either MW ≤ 0"}, st.wrap)

	w.row("A20", []any{"Status", "Rule", ""}, st.header)
	w.row("A21", []any{"PASS", fmt.Sprintf("Recommended value ≥ %s%%", num(p.Status.PassMin)), ""}, st.wrap)
	w.row("A22", []any{"ALERT", fmt.Sprintf("%s%% ≤ value < %s%%", num(p.Status.AlertMin), num(p.Status.PassMin)), ""}, st.wrap)
	w.row("A23", []any{"OOS", fmt.Sprintf("Value < %s%%", num(p.Status.AlertMin)), ""}, st.wrap)

	w.widths(map[string]float64{"A": 14, "B": 60, "C": 34})
	return w.err
}

// requiredStress lists the stress conditions the compliance check expects.
var requiredStress = []massbalance.StressCondition{
	massbalance.StressAcid,
	massbalance.StressBase,
	massbalance.StressOxidative,
	massbalance.StressThermal,
}

// stressCoverage reports which required stress conditions are missing.
func stressCoverage(entries []Entry) []massbalance.StressCondition {
	seen := make(map[massbalance.StressCondition]bool)
	for _, e := range entries {
		seen[e.Result.Measurement.Stress.Normalize()] = true
	}
	var missing []massbalance.StressCondition
	for _, s := range requiredStress {
		if !seen[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

// Compliance states.
const (
	Compliant    = "COMPLIANT"
	Partial      = "PARTIAL"
	NotEvidenced = "NOT EVIDENCED"
)

func (r *Renderer) writeCompliance(f *excelize.File, st *styles, current Entry, history []Entry) error {
	w := newSheetWriter(f, SheetCompliance)
	w.merge("A1", "C1", "ICH Q1A(R2) Compliance Checklist", st.title)
	w.row("A3", []any{"Requirement", "Status", "Evidence"}, st.header)

	coverage := Compliant
	evidence := "Acid, Base, Oxidative and Thermal studies on record"
	if missing := stressCoverage(append([]Entry{current}, history...)); len(missing) > 0 {
		coverage = Partial
		names := make([]string, len(missing))
		for i, s := range missing {
			names[i] = string(s)
		}
		evidence = "Missing: " + strings.Join(names, ", ")
	}

	retained, retainedEvidence := Compliant, fmt.Sprintf("%d calculations retained", len(history))
	if len(history) == 0 {
		retained, retainedEvidence = NotEvidenced, "No calculation history"
	}

	rows := [][]string{
		{"Mass balance assessed by multiple methods", Compliant, "SMB, AMB, RMB, LK-IMB and CIMB computed"},
		{"Response factor and stoichiometric corrections", Compliant, "λ, ω and S applied"},
		{"Confidence intervals reported", Compliant, fmt.Sprintf("%s band, multiplier %s", r.policy.Interval.Model, num(r.policy.Interval.Multiplier))},
		{"Stress conditions covered", coverage, evidence},
		{"Calculation records retained", retained, retainedEvidence},
	}
	for i, row := range rows {
		n := 4 + i
		w.set(cellName("A", n), row[0], st.wrap)
		w.set(cellName("B", n), row[1], st.levelStyle(row[1]))
		w.set(cellName("C", n), row[2], st.wrap)
	}

	w.widths(map[string]float64{"A": 44, "B": 16, "C": 50})
	return w.err
}
