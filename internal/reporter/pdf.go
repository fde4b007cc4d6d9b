package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin    = 15.0
	pdfLineH     = 5.0
	pdfPageWidth = 210.0
)

// WritePDF A4 PDF export of the document using the core Helvetica font
func WritePDF(w io.Writer, doc *Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("spyosint", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AliasNbPages("")

	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(127, 140, 141)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(44, 62, 80)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)
	pdf.Ln(2)

	writeFields := func(fields []field) {
		for _, f := range fields {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.SetTextColor(44, 62, 80)
			pdf.CellFormat(40, pdfLineH, tr(f.Label), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(51, 51, 51)
			pdf.MultiCell(0, pdfLineH, tr(f.Value), "", "L", false)
		}
	}
	heading := func(text string, size float64) {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", size)
		pdf.SetTextColor(52, 73, 94)
		pdf.MultiCell(0, size*0.5+1, tr(text), "", "L", false)
		pdf.Ln(1)
	}

	writeFields(overview(doc))

	if doc.Report != nil {
		heading("Correlation Analysis", 14)
		if doc.Report.SummaryText != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(51, 51, 51)
			pdf.MultiCell(0, pdfLineH, tr(doc.Report.SummaryText), "", "L", false)
		}
		writePDFTable(pdf, tr, correlationHeader, correlationRows(doc))
		if rows := entityRows(doc); len(rows) > 0 {
			heading("Entities", 11)
			writePDFTable(pdf, tr, entityHeader, rows)
		}
	}

	if len(doc.Results) > 0 {
		heading(fmt.Sprintf("Results (%d)", len(doc.Results)), 14)
	}
	for _, r := range doc.Results {
		s := describe(r)
		heading(s.Title, 11)
		writeFields(s.Fields)
		for _, t := range s.Tables {
			pdf.Ln(1)
			pdf.SetFont("Helvetica", "BI", 9)
			pdf.SetTextColor(127, 140, 141)
			pdf.CellFormat(0, pdfLineH, tr(t.Name), "", 1, "L", false, 0, "")
			writePDFTable(pdf, tr, t.Header, t.Rows)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return pdf.Output(w)
}

// writePDFTable rows are rendered as "header: value" lines so long urls wrap
func writePDFTable(pdf *fpdf.Fpdf, tr func(string) string, header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	width := pdfPageWidth - 2*pdfMargin
	for i, row := range rows {
		if i%2 == 0 {
			pdf.SetFillColor(236, 240, 241)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		var parts []string
		for j, cell := range row {
			if cell == "" || j >= len(header) {
				continue
			}
			parts = append(parts, header[j]+": "+cell)
		}
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(51, 51, 51)
		pdf.MultiCell(width, 4.5, tr(strings.Join(parts, "  |  ")), "", "L", true)
	}
}
