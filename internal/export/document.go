package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	lineHeight  = 6.0
	rowHeight   = 7.0
	sectionGap  = 4.0
	headerSize  = 18.0
	sectionSize = 13.0
	bodySize    = 10.0
)

// Document is a paged A4 PDF. Every block checks whether it fits on the current page
// before drawing and starts a new page when it would overflow.
type Document struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	width  float64
	height float64
	margin float64
}

// NewDocument creates an A4 document with one blank page. orientation is "P" or "L".
func NewDocument(orientation, title string) *Document {
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 15)
	pdf.SetTitle(title, true)
	pdf.SetCreator("helpinghands console", true)
	w, h := pdf.GetPageSize()
	d := &Document{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		width:  w,
		height: h,
		margin: 15,
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

// ContentWidth is the page width inside the margins.
func (d *Document) ContentWidth() float64 { return d.width - 2*d.margin }

// EnsureSpace starts a new page when h millimetres do not fit below the cursor.
// It reports whether a page break happened.
func (d *Document) EnsureSpace(h float64) bool {
	if d.pdf.GetY()+h <= d.height-d.margin {
		return false
	}
	d.pdf.AddPage()
	return true
}

// Heading draws the document title and an optional subtitle.
func (d *Document) Heading(title, subtitle string) {
	d.EnsureSpace(20)
	d.pdf.SetFont("Helvetica", "B", headerSize)
	d.pdf.SetTextColor(33, 37, 41)
	d.pdf.CellFormat(0, 10, d.tr(title), "", 1, "L", false, 0, "")
	if subtitle != "" {
		d.pdf.SetFont("Helvetica", "", bodySize)
		d.pdf.SetTextColor(108, 117, 125)
		d.pdf.CellFormat(0, lineHeight, d.tr(subtitle), "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(sectionGap)
}

// Section draws a section header with a rule under it. The header is kept together
// with at least one following row.
func (d *Document) Section(title string) {
	d.EnsureSpace(12 + rowHeight)
	d.pdf.SetFont("Helvetica", "B", sectionSize)
	d.pdf.SetTextColor(33, 37, 41)
	d.pdf.CellFormat(0, 8, d.tr(title), "", 1, "L", false, 0, "")
	y := d.pdf.GetY()
	d.pdf.SetDrawColor(206, 212, 218)
	d.pdf.Line(d.margin, y, d.width-d.margin, y)
	d.pdf.Ln(2)
}

// Paragraph draws wrapped body text, breaking pages between lines.
func (d *Document) Paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", bodySize)
	d.pdf.SetTextColor(33, 37, 41)
	for _, line := range d.pdf.SplitText(d.tr(text), d.ContentWidth()) {
		d.EnsureSpace(lineHeight)
		d.pdf.CellFormat(0, lineHeight, line, "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(sectionGap)
}

// Column is a table column. Width is a fraction of the content width.
type Column struct {
	Header string
	Width  float64
	Align  string // "L", "C" or "R"; empty means left
}

// Table is a header row plus data rows of pre-formatted cells.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// Table draws t with fixed column offsets and alternating row shading. When a row
// would overflow, the page breaks and the header row is printed again.
func (d *Document) Table(t Table) {
	d.EnsureSpace(2 * rowHeight)
	d.tableHeader(t.Columns)
	d.pdf.SetFont("Helvetica", "", bodySize)
	for i, row := range t.Rows {
		if d.EnsureSpace(rowHeight) {
			d.tableHeader(t.Columns)
			d.pdf.SetFont("Helvetica", "", bodySize)
		}
		shade := i%2 == 1
		if shade {
			d.pdf.SetFillColor(245, 247, 250)
		}
		d.pdf.SetTextColor(33, 37, 41)
		for c, col := range t.Columns {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			d.pdf.CellFormat(col.Width*d.ContentWidth(), rowHeight, d.fit(cell, col.Width*d.ContentWidth()), "", 0, align(col.Align), shade, 0, "")
		}
		d.pdf.Ln(rowHeight)
	}
	d.pdf.Ln(sectionGap)
}

func (d *Document) tableHeader(cols []Column) {
	d.pdf.SetFont("Helvetica", "B", bodySize)
	d.pdf.SetFillColor(52, 58, 64)
	d.pdf.SetTextColor(255, 255, 255)
	for _, col := range cols {
		d.pdf.CellFormat(col.Width*d.ContentWidth(), rowHeight, d.tr(col.Header), "", 0, align(col.Align), true, 0, "")
	}
	d.pdf.Ln(rowHeight)
}

// fit truncates s so it stays inside a cell of width w.
func (d *Document) fit(s string, w float64) string {
	s = d.tr(s)
	if d.pdf.GetStringWidth(s) <= w-2 {
		return s
	}
	for len(s) > 0 && d.pdf.GetStringWidth(s+"...") > w-2 {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func align(a string) string {
	if a == "" {
		return "L"
	}
	return a
}

// CheckItem is one checklist line.
type CheckItem struct {
	Label string
	Done  bool
}

// Checklist draws a box per item, ticked when done.
func (d *Document) Checklist(items []CheckItem) {
	d.pdf.SetFont("Helvetica", "", bodySize)
	d.pdf.SetDrawColor(73, 80, 87)
	for _, item := range items {
		d.EnsureSpace(rowHeight)
		x, y := d.pdf.GetX(), d.pdf.GetY()
		d.pdf.Rect(x, y+1.5, 4, 4, "D")
		if item.Done {
			d.pdf.SetLineWidth(0.5)
			d.pdf.Line(x+0.8, y+3.6, x+1.8, y+4.8)
			d.pdf.Line(x+1.8, y+4.8, x+3.4, y+2.0)
			d.pdf.SetLineWidth(0.2)
		}
		d.pdf.SetX(x + 6)
		d.pdf.SetTextColor(33, 37, 41)
		d.pdf.CellFormat(0, rowHeight, d.tr(item.Label), "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(sectionGap)
}

// Chart draws c into a block of height h spanning the content width.
func (d *Document) Chart(c Chart, h float64) {
	d.EnsureSpace(h + sectionGap)
	y := d.pdf.GetY()
	c.Draw(d.pdf, d.tr, d.margin, y, d.ContentWidth(), h)
	d.pdf.SetXY(d.margin, y+h)
	d.pdf.Ln(sectionGap)
}

// Bytes serializes the document. Nothing is returned unless the whole document
// rendered cleanly.
func (d *Document) Bytes() ([]byte, error) {
	if err := d.pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
