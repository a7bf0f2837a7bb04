package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Article is one document to lay out as a PDF.
type Article struct {
	Title    string
	Subtitle string
	Meta     []string
	Content  string
}

// PDFExporter renders articles into a simple printable PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a title block, metadata lines and the
// body text wrapped across pages.
func (e *PDFExporter) Render(article Article) ([]byte, error) {
	if article.Title == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 9, tr(article.Title), "", "L", false)

	if article.Subtitle != "" {
		pdf.SetFont("Arial", "I", 11)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(0, 6, tr(article.Subtitle), "", "L", false)
	}

	if len(article.Meta) > 0 {
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(0, 5, tr(strings.Join(article.Meta, "  |  ")), "", "L", false)
	}

	pdf.Ln(4)
	pdf.SetDrawColor(200, 200, 200)
	left, _, right, _ := pdf.GetMargins()
	width, _ := pdf.GetPageSize()
	y := pdf.GetY()
	pdf.Line(left, y, width-right, y)
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 11)
	for _, paragraph := range strings.Split(article.Content, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 6, tr(paragraph), "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
