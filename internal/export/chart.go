package export

import (
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/helpinghands/console/internal/metrics"
	"github.com/helpinghands/console/internal/models"
)

// Chart is something the caller hands to a Document to draw inside a fixed box.
// tr converts UTF-8 text to the document's core-font encoding.
type Chart interface {
	Draw(pdf *fpdf.Fpdf, tr func(string) string, x, y, w, h float64)
}

// BarChart is a vertical bar chart over a monthly series.
type BarChart struct {
	Title  string
	Points []models.MonthlyPoint
}

// Draw renders the bars with vector primitives. An all-zero or empty series draws
// just the axes.
func (c BarChart) Draw(pdf *fpdf.Fpdf, tr func(string) string, x, y, w, h float64) {
	const labelBand = 6.0
	top := y
	if c.Title != "" {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(73, 80, 87)
		pdf.SetXY(x, y)
		pdf.CellFormat(w, 5, tr(c.Title), "", 0, "L", false, 0, "")
		top += 6
	}
	plotH := h - (top - y) - labelBand
	baseline := top + plotH

	pdf.SetDrawColor(173, 181, 189)
	pdf.SetLineWidth(0.2)
	pdf.Line(x, baseline, x+w, baseline)
	pdf.Line(x, top, x, baseline)
	if len(c.Points) == 0 || plotH <= 0 {
		return
	}

	peak := 0.0
	for _, p := range c.Points {
		peak = max(peak, p.Value)
	}
	slot := w / float64(len(c.Points))
	bar := slot * 0.6
	pdf.SetFillColor(13, 110, 253)
	pdf.SetFont("Helvetica", "", 7)
	for i, p := range c.Points {
		bx := x + float64(i)*slot + (slot-bar)/2
		if peak > 0 && p.Value > 0 {
			bh := plotH * p.Value / peak
			pdf.Rect(bx, baseline-bh, bar, bh, "F")
			pdf.SetTextColor(73, 80, 87)
			pdf.SetXY(x+float64(i)*slot, baseline-bh-4)
			pdf.CellFormat(slot, 4, strconv.FormatFloat(p.Value, 'f', -1, 64), "", 0, "C", false, 0, "")
		}
		pdf.SetTextColor(108, 117, 125)
		pdf.SetXY(x+float64(i)*slot, baseline+1)
		pdf.CellFormat(slot, 4, monthLabel(p.Month), "", 0, "C", false, 0, "")
	}
}

func monthLabel(month string) string {
	t, err := time.Parse(metrics.MonthLayout, month)
	if err != nil {
		return month
	}
	return t.Format("Jan")
}
