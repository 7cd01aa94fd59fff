package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
)

// ErrTooFewPoints is returned when a trend chart has fewer than two calculations.
var ErrTooFewPoints = errors.New("trend chart needs at least two calculations")

// TrendPNG renders stressed API, LK-IMB and CIMB over time, with degradation
// on the secondary axis. Nothing is written to w unless rendering succeeds.
func TrendPNG(w io.Writer, entries []Entry) error {
	if len(entries) < 2 {
		return ErrTooFewPoints
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	x := make([]time.Time, len(sorted))
	api := make([]float64, len(sorted))
	lkimb := make([]float64, len(sorted))
	cimb := make([]float64, len(sorted))
	degradation := make([]float64, len(sorted))
	for i, e := range sorted {
		x[i] = e.Timestamp
		api[i] = e.Result.Measurement.StressedAPI
		lkimb[i] = e.Result.Methods.LKIMB
		cimb[i] = e.Result.Methods.CIMB
		degradation[i] = e.Result.DegradationPct
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		YAxis: chart.YAxis{
			Name:           "Mass balance (%)",
			ValueFormatter: pctFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Degradation (%)",
			ValueFormatter: pctFormatter,
		},
	}

	if x[0].Equal(x[len(x)-1]) {
		// timestamps share one instant; plot by sequence instead
		seq := make([]float64, len(sorted))
		for i := range seq {
			seq[i] = float64(i + 1)
		}
		graph.XAxis = chart.XAxis{
			Name: "Calculation",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		}
		graph.Series = []chart.Series{
			chart.ContinuousSeries{Name: "Stressed API", XValues: seq, YValues: api},
			chart.ContinuousSeries{Name: "LK-IMB", XValues: seq, YValues: lkimb},
			chart.ContinuousSeries{Name: "CIMB", XValues: seq, YValues: cimb},
			chart.ContinuousSeries{Name: "Degradation %", XValues: seq, YValues: degradation, YAxis: chart.YAxisSecondary},
		}
	} else {
		graph.XAxis = chart.XAxis{ValueFormatter: chart.TimeValueFormatter}
		graph.Series = []chart.Series{
			chart.TimeSeries{Name: "Stressed API", XValues: x, YValues: api},
			chart.TimeSeries{Name: "LK-IMB", XValues: x, YValues: lkimb},
			chart.TimeSeries{Name: "CIMB", XValues: x, YValues: cimb},
			chart.TimeSeries{Name: "Degradation %", XValues: x, YValues: degradation, YAxis: chart.YAxisSecondary},
		}
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("render trend chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
