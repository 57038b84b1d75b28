package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/tabular"
	"reportai/internal/templates"
)

const (
	pdfMargin     = 15.0
	pdfPageHeight = 297.0 // A4 portrait, mm
	pdfRowHeight  = 7.0
	pdfCellChars  = 22 // max characters per table cell before truncation
)

// PDFRenderer produces a paginated A4 document.
type PDFRenderer struct {
	cfg config.ReportConfig
}

// Format implements Renderer.
func (r *PDFRenderer) Format() Format { return FormatPDF }

// Render implements Renderer. Compression is left off so the text stream
// stays searchable by downstream tooling.
func (r *PDFRenderer) Render(result *analysis.Result, wb *tabular.Workbook, meta Metadata, layout *templates.Layout) ([]byte, error) {
	if err := validateInput(result, wb, layout); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Title block
	pdf.SetFont("Helvetica", "B", 22)
	pdf.MultiCell(0, 12, tr(meta.Title), "", "C", false)
	pdf.Ln(4)

	labels := layout.Labels
	metaRows := [][2]string{
		{labels.Date, meta.Date},
		{labels.Company, orDefault(meta.Company, labels.NotAvailable)},
		{labels.Author, orDefault(meta.Author, labels.NotAvailable)},
		{labels.Generated, meta.Generated.Format("2006-01-02 15:04")},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range metaRows {
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(40, 6, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	for _, section := range layout.Sections {
		r.writeHeading(pdf, tr, section.Title)

		if section.ID == templates.SectionDataSummary {
			r.writeTable(pdf, tr, wb.First())
			pdf.Ln(6)
			continue
		}

		text, items := sectionBody(result, section.ID)
		pdf.SetFont("Helvetica", "", 11)
		if text != "" {
			pdf.MultiCell(0, 6, tr(text), "", "L", false)
		}
		for i, item := range items {
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, item)), "", "L", false)
			pdf.Ln(1)
		}
		pdf.Ln(6)
	}

	// Footer line
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(0, 5, tr(labels.Footer+" | "+meta.Generated.Format("2006-01-02")), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.NewRenderError("failed to build PDF document", err)
	}
	if buf.Len() == 0 {
		return nil, apperrors.NewRenderError("PDF renderer produced no output", nil)
	}
	return buf.Bytes(), nil
}

// writeHeading writes a section heading, breaking the page first when too
// little vertical space remains for the heading and one line of body.
func (r *PDFRenderer) writeHeading(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	if pdf.GetY()+24 > pdfPageHeight-pdfMargin {
		pdf.AddPage()
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 90, 60)
	pdf.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
}

// writeTable lays out the data-summary table with fixed row heights. A row is
// never split across pages: when one does not fit, the page breaks and the
// header row repeats.
func (r *PDFRenderer) writeTable(pdf *fpdf.Fpdf, tr func(string) string, t *tabular.Table) {
	header, rows := summaryRows(t, r.cfg.SummaryTableRows, r.cfg.SummaryTableCols)
	if len(header) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, tr("(no data)"), "", 1, "L", false, 0, "")
		return
	}

	usable := 210.0 - 2*pdfMargin
	colWidth := usable / float64(len(header))

	writeHeaderRow := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(200, 230, 215)
		for _, name := range header {
			pdf.CellFormat(colWidth, pdfRowHeight, tr(truncateCell(name)), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	writeHeaderRow()
	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		if pdf.GetY()+pdfRowHeight > pdfPageHeight-pdfMargin {
			pdf.AddPage()
			writeHeaderRow()
			pdf.SetFont("Helvetica", "", 8)
		}
		for _, cell := range row {
			pdf.CellFormat(colWidth, pdfRowHeight, tr(truncateCell(cell)), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func truncateCell(s string) string {
	// Truncate on runes, not bytes: cell data may carry multibyte characters
	// and a split rune turns into mojibake in the cp1252 content stream.
	runes := []rune(s)
	if len(runes) <= pdfCellChars {
		return s
	}
	return string(runes[:pdfCellChars-1]) + "…"
}
