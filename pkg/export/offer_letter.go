package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// OfferLetter carries the fields printed on a placement offer letter.
type OfferLetter struct {
	StudentName string
	BatchNo     string
	Company     string
	Role        string
	Comment     string
	IssuedAt    time.Time
	Issuer      string
}

// OfferLetterRenderer renders offer letters as single page PDFs.
type OfferLetterRenderer struct{}

// NewOfferLetterRenderer constructs a renderer.
func NewOfferLetterRenderer() *OfferLetterRenderer {
	return &OfferLetterRenderer{}
}

// Render produces the PDF bytes for the letter.
func (r *OfferLetterRenderer) Render(letter OfferLetter) ([]byte, error) {
	if letter.StudentName == "" || letter.Company == "" {
		return nil, fmt.Errorf("offer letter requires student name and company")
	}
	if letter.IssuedAt.IsZero() {
		letter.IssuedAt = time.Now().UTC()
	}
	issuer := letter.Issuer
	if issuer == "" {
		issuer = "Placement Cell"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.SetTitle(fmt.Sprintf("Offer - %s - %s", letter.Company, letter.StudentName), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper("Letter of Selection"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Date: "+letter.IssuedAt.Format("02 Jan 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(4)
	pdf.CellFormat(0, 7, "Dear "+letter.StudentName+",", "", 1, "", false, 0, "")
	pdf.Ln(2)

	body := fmt.Sprintf("Congratulations! You have cleared the final round of the selection process at %s", letter.Company)
	if letter.Role != "" {
		body += fmt.Sprintf(" for the role of %s", letter.Role)
	}
	body += ". The company will share the formal employment terms with you directly."
	pdf.MultiCell(0, 6, body, "", "", false)

	if letter.Comment != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, "Note: "+letter.Comment, "", "", false)
		pdf.SetFont("Arial", "", 11)
	}

	if letter.BatchNo != "" {
		pdf.Ln(3)
		pdf.CellFormat(0, 7, "Batch: "+letter.BatchNo, "", 1, "", false, 0, "")
	}

	pdf.Ln(12)
	pdf.CellFormat(0, 7, "Regards,", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, issuer, "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render offer letter: %w", err)
	}
	return buf.Bytes(), nil
}
