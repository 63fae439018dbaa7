package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// certificateSpace namespaces certificate verification codes.
var certificateSpace = uuid.MustParse("6f1c2a9e-4b7d-5e3a-9c10-2f8d7b6a5e41")

// Certificate is a volunteer-hours certificate.
type Certificate struct {
	UserID         int64
	Name           string
	Hours          float64
	EventsAttended int
	IssuedAt       time.Time
}

// Code is the certificate's verification code. The same user, hours and issue date
// always give the same code.
func (c Certificate) Code() string {
	seed := fmt.Sprintf("%d|%s|%.2f|%d", c.UserID, c.IssuedAt.Format("2006-01-02"), c.Hours, c.EventsAttended)
	id := uuid.NewSHA1(certificateSpace, []byte(seed))
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}

// CertificateFilename is "certificate-<code>.pdf".
func CertificateFilename(code string) string {
	return "certificate-" + code + ".pdf"
}

// RenderCertificate draws c on a single landscape A4 page.
func RenderCertificate(c Certificate) (*File, error) {
	code := c.Code()
	data, err := generate("certificate", func() ([]byte, error) {
		doc := NewDocument("L", "Certificate of Appreciation")
		pdf, tr := doc.pdf, doc.tr
		w, h := doc.width, doc.height

		pdf.SetDrawColor(13, 110, 253)
		pdf.SetLineWidth(1.5)
		pdf.Rect(10, 10, w-20, h-20, "D")
		pdf.SetLineWidth(0.4)
		pdf.Rect(14, 14, w-28, h-28, "D")

		center := func(y float64, style string, size float64, text string) {
			pdf.SetFont("Helvetica", style, size)
			pdf.SetXY(20, y)
			pdf.CellFormat(w-40, size*0.5, tr(text), "", 0, "C", false, 0, "")
		}

		pdf.SetTextColor(33, 37, 41)
		center(40, "B", 30, "Certificate of Appreciation")
		pdf.SetTextColor(108, 117, 125)
		center(65, "", 14, "This certifies that")
		pdf.SetTextColor(13, 110, 253)
		center(80, "B", 26, c.Name)
		pdf.SetTextColor(33, 37, 41)
		center(102, "", 14, fmt.Sprintf("has contributed %s volunteer hours across %d %s.",
			formatValue(c.Hours), c.EventsAttended, plural(c.EventsAttended, "event", "events")))
		center(116, "", 12, "Thank you for your service to the community.")

		pdf.SetTextColor(108, 117, 125)
		center(150, "", 11, "Issued "+c.IssuedAt.Format("January 2, 2006"))
		center(160, "", 10, "Verification code: "+code)
		return doc.Bytes()
	})
	if err != nil {
		return nil, err
	}
	return &File{Name: CertificateFilename(code), ContentType: ContentTypePDF, Data: data}, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
