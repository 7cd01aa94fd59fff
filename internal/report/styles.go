package report

import (
	"github.com/xuri/excelize/v2"
)

const (
	colorHeader   = "1F4E78"
	colorSubtle   = "D9E1F2"
	colorInput    = "FFF2CC"
	colorLow      = "C6EFCE"
	colorModerate = "FFEB9C"
	colorHigh     = "FFC7CE"
	colorLowFont  = "006100"
	colorModFont  = "9C5700"
	colorHighFont = "9C0006"
)

type styles struct {
	title     int
	header    int
	label     int
	input     int
	inputText int
	calc      int
	factor    int
	text      int
	wrap      int
	link      int
	percent   int

	riskLow      int
	riskModerate int
	riskHigh     int

	// conditional formats
	cfLow      int
	cfModerate int
	cfHigh     int
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "BFBFBF", Style: 1},
		{Type: "right", Color: "BFBFBF", Style: 1},
		{Type: "top", Color: "BFBFBF", Style: 1},
		{Type: "bottom", Color: "BFBFBF", Style: 1},
	}
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

func newStyles(f *excelize.File) (*styles, error) {
	s := &styles{}
	var err error
	add := func(dst *int, style *excelize.Style) {
		if err != nil {
			return
		}
		*dst, err = f.NewStyle(style)
	}
	addConditional := func(dst *int, style *excelize.Style) {
		if err != nil {
			return
		}
		*dst, err = f.NewConditionalStyle(style)
	}

	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	add(&s.title, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "FFFFFF"},
		Fill:      solid(colorHeader),
		Alignment: center,
	})
	add(&s.header, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      solid(colorHeader),
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	add(&s.label, &excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   solid(colorSubtle),
		Border: thinBorder(),
	})
	add(&s.input, &excelize.Style{
		Fill:   solid(colorInput),
		Border: thinBorder(),
		NumFmt: 2,
	})
	add(&s.inputText, &excelize.Style{
		Fill:   solid(colorInput),
		Border: thinBorder(),
	})
	add(&s.calc, &excelize.Style{
		Border: thinBorder(),
		NumFmt: 2,
	})
	factorFmt := "0.0000"
	add(&s.factor, &excelize.Style{
		Border:       thinBorder(),
		CustomNumFmt: &factorFmt,
	})
	add(&s.text, &excelize.Style{
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	add(&s.wrap, &excelize.Style{
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	add(&s.link, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Underline: "single", Color: "0563C1"},
		Alignment: center,
	})
	add(&s.percent, &excelize.Style{
		Border: thinBorder(),
		NumFmt: 10,
	})

	add(&s.riskLow, &excelize.Style{
		Font: &excelize.Font{Bold: true, Color: colorLowFont}, Fill: solid(colorLow), Border: thinBorder(), Alignment: center,
	})
	add(&s.riskModerate, &excelize.Style{
		Font: &excelize.Font{Bold: true, Color: colorModFont}, Fill: solid(colorModerate), Border: thinBorder(), Alignment: center,
	})
	add(&s.riskHigh, &excelize.Style{
		Font: &excelize.Font{Bold: true, Color: colorHighFont}, Fill: solid(colorHigh), Border: thinBorder(), Alignment: center,
	})

	addConditional(&s.cfLow, &excelize.Style{
		Font: &excelize.Font{Bold: true, Color: colorLowFont}, Fill: solid(colorLow),
	})
	addConditional(&s.cfModerate, &excelize.Style{
		Font: &excelize.Font{Bold: true, Color: colorModFont}, Fill: solid(colorModerate),
	})
	addConditional(&s.cfHigh, &excelize.Style{
		Font: &excelize.Font{Bold: true, Color: colorHighFont}, Fill: solid(colorHigh),
	})

	if err != nil {
		return nil, err
	}
	return s, nil
}

// levelStyle maps a risk or status label onto the green/amber/red static styles.
func (s *styles) levelStyle(level string) int {
	switch level {
	case "LOW", "PASS", "COMPLIANT":
		return s.riskLow
	case "MODERATE", "ALERT", "PARTIAL":
		return s.riskModerate
	default:
		return s.riskHigh
	}
}

// levelRules returns cell rules colouring three labels green, amber and red.
func (s *styles) levelRules(good, warn, bad string) []excelize.ConditionalFormatOptions {
	rule := func(label string, format int) excelize.ConditionalFormatOptions {
		return excelize.ConditionalFormatOptions{Type: "cell", Criteria: "==", Value: quote(label), Format: format}
	}
	return []excelize.ConditionalFormatOptions{
		rule(good, s.cfLow),
		rule(warn, s.cfModerate),
		rule(bad, s.cfHigh),
	}
}
