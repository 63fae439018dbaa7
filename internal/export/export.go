// Package export renders reports and certificates as PDF documents and XLSX workbooks.
// Output bytes are only returned after a complete generation pass; any error or panic
// while drawing is reported as ErrGeneration.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/helpinghands/console/internal/models"
)

// ErrGeneration is returned when a document could not be produced.
var ErrGeneration = errors.New("could not generate the report")

// Content types of the produced files.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File is a finished download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Render produces r in the given format (models.FormatPDF or models.FormatXLSX).
func Render(r Report, format string) (*File, error) {
	switch format {
	case models.FormatPDF:
		data, err := RenderPDF(r)
		if err != nil {
			return nil, err
		}
		return &File{Name: Filename(r.Label, "pdf", r.GeneratedAt), ContentType: ContentTypePDF, Data: data}, nil
	case models.FormatXLSX:
		data, err := RenderXLSX(r)
		if err != nil {
			return nil, err
		}
		return &File{Name: Filename(r.Label, "xlsx", r.GeneratedAt), ContentType: ContentTypeXLSX, Data: data}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// RenderPDF draws r as a paged A4 document.
func RenderPDF(r Report) ([]byte, error) {
	return generate("pdf", func() ([]byte, error) {
		doc := NewDocument("P", r.Title)
		doc.Heading(r.Title, "Generated "+r.GeneratedAt.Format("January 2, 2006 15:04"))

		doc.Section("Summary")
		summary := Table{Columns: []Column{{Header: "Metric", Width: 0.7}, {Header: "Value", Width: 0.3, Align: "R"}}}
		for _, row := range r.Summary {
			summary.Rows = append(summary.Rows, []string{row.Label, formatValue(row.Value)})
		}
		doc.Table(summary)

		for _, s := range r.Series {
			doc.Section(s.Name)
			doc.Chart(BarChart{Points: s.Points}, 55)
			t := Table{Columns: []Column{{Header: "Month", Width: 0.5}, {Header: "Value", Width: 0.5, Align: "R"}}}
			for _, p := range s.Points {
				t.Rows = append(t.Rows, []string{p.Month, formatValue(p.Value)})
			}
			doc.Table(t)
		}

		for _, b := range r.Breakdowns {
			doc.Section(b.Title)
			if len(b.Items) == 0 {
				doc.Paragraph("No data for this period.")
				continue
			}
			t := Table{Columns: []Column{{Header: "Name", Width: 0.75}, {Header: "Count", Width: 0.25, Align: "R"}}}
			for _, item := range b.Items {
				t.Rows = append(t.Rows, []string{item.Label, fmt.Sprint(item.Count)})
			}
			doc.Table(t)
		}

		if len(r.Checklist) > 0 {
			doc.Section("Checklist")
			doc.Checklist(r.Checklist)
		}
		return doc.Bytes()
	})
}

// RenderXLSX builds r as a workbook with Summary, Time Series and one sheet per breakdown.
func RenderXLSX(r Report) ([]byte, error) {
	return generate("xlsx", func() ([]byte, error) {
		return Workbook(Sheets(r))
	})
}

// Sheets lays r out as worksheets.
func Sheets(r Report) []Sheet {
	summary := Sheet{Name: "Summary", Rows: [][]any{{"Metric", "Value"}}}
	for _, row := range r.Summary {
		summary.Rows = append(summary.Rows, []any{row.Label, row.Value})
	}
	sheets := []Sheet{summary}

	if len(r.Series) > 0 {
		header := []any{"Month"}
		for _, s := range r.Series {
			header = append(header, s.Name)
		}
		series := Sheet{Name: "Time Series", Rows: [][]any{header}}
		byMonth := map[string][]any{}
		var months []string
		for i, s := range r.Series {
			for _, p := range s.Points {
				row, ok := byMonth[p.Month]
				if !ok {
					row = make([]any, len(r.Series)+1)
					row[0] = p.Month
					for j := 1; j < len(row); j++ {
						row[j] = 0.0
					}
					byMonth[p.Month] = row
					months = append(months, p.Month)
				}
				row[i+1] = p.Value
			}
		}
		for _, m := range months {
			series.Rows = append(series.Rows, byMonth[m])
		}
		sheets = append(sheets, series)
	}

	for _, b := range r.Breakdowns {
		sheet := Sheet{Name: b.Title, Rows: [][]any{{"Name", "Count"}}}
		for _, item := range b.Items {
			sheet.Rows = append(sheet.Rows, []any{item.Label, item.Count})
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

func generate(kind string, build func() ([]byte, error)) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("%w: %s: %v", ErrGeneration, kind, p)
		}
	}()
	data, err := build()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrGeneration, kind, err)
	}
	return data, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Filename is "<label>-report-<YYYY-MM-DD>.<ext>" with label reduced to a slug.
func Filename(label, ext string, now time.Time) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(label), "-"), "-")
	if slug == "" {
		slug = "export"
	}
	return fmt.Sprintf("%s-report-%s.%s", slug, now.Format("2006-01-02"), ext)
}
