package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheetWriter batches cell writes on one sheet and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	name string
	err  error
}

func newSheetWriter(f *excelize.File, name string) *sheetWriter {
	return &sheetWriter{f: f, name: name}
}

func (w *sheetWriter) do(fn func() error) {
	if w.err != nil {
		return
	}
	if err := fn(); err != nil {
		w.err = fmt.Errorf("sheet %q: %w", w.name, err)
	}
}

func (w *sheetWriter) style(from, to string, style int) {
	if style == 0 {
		return
	}
	w.do(func() error { return w.f.SetCellStyle(w.name, from, to, style) })
}

func (w *sheetWriter) set(cell string, v any, style int) {
	w.do(func() error { return w.f.SetCellValue(w.name, cell, v) })
	w.style(cell, cell, style)
}

func (w *sheetWriter) formula(cell, formula string, style int) {
	w.do(func() error { return w.f.SetCellFormula(w.name, cell, strings.TrimPrefix(formula, "=")) })
	w.style(cell, cell, style)
}

func (w *sheetWriter) merge(from, to string, v any, style int) {
	w.do(func() error { return w.f.MergeCell(w.name, from, to) })
	w.do(func() error { return w.f.SetCellValue(w.name, from, v) })
	w.style(from, to, style)
}

func (w *sheetWriter) row(cell string, values []any, style int) {
	w.do(func() error { return w.f.SetSheetRow(w.name, cell, &values) })
	if style == 0 || len(values) == 0 {
		return
	}
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		w.do(func() error { return err })
		return
	}
	end, err := excelize.CoordinatesToCellName(col+len(values)-1, row)
	if err != nil {
		w.do(func() error { return err })
		return
	}
	w.style(cell, end, style)
}

func (w *sheetWriter) widths(cols map[string]float64) {
	for col, width := range cols {
		w.do(func() error { return w.f.SetColWidth(w.name, col, col, width) })
	}
}

func (w *sheetWriter) height(row int, h float64) {
	w.do(func() error { return w.f.SetRowHeight(w.name, row, h) })
}

func (w *sheetWriter) conditional(rangeRef string, rules []excelize.ConditionalFormatOptions) {
	w.do(func() error { return w.f.SetConditionalFormat(w.name, rangeRef, rules) })
}

func (w *sheetWriter) hideGrid() {
	show := false
	w.do(func() error { return w.f.SetSheetView(w.name, -1, &excelize.ViewOptions{ShowGridLines: &show}) })
}

func cellName(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func absCell(col string, row int) string {
	return fmt.Sprintf("$%s$%d", col, row)
}
