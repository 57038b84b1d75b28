package report

import (
	"os"
	"path/filepath"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/tabular"
	"reportai/internal/templates"
)

// WordRenderer produces an editable OOXML word-processor document using
// native heading levels and a native table object.
type WordRenderer struct {
	cfg config.ReportConfig
}

// Format implements Renderer.
func (r *WordRenderer) Format() Format { return FormatWord }

// Render implements Renderer.
func (r *WordRenderer) Render(result *analysis.Result, wb *tabular.Workbook, meta Metadata, layout *templates.Layout) ([]byte, error) {
	if err := validateInput(result, wb, layout); err != nil {
		return nil, err
	}

	document, err := godocx.NewDocument()
	if err != nil {
		return nil, apperrors.NewRenderError("failed to create document", err)
	}

	document.AddHeading(meta.Title, 0)

	labels := layout.Labels
	document.AddParagraph(labels.Date + " " + meta.Date)
	document.AddParagraph(labels.Company + " " + orDefault(meta.Company, labels.NotAvailable))
	document.AddParagraph(labels.Author + " " + orDefault(meta.Author, labels.NotAvailable))
	document.AddParagraph(labels.Generated + " " + meta.Generated.Format("2006-01-02 15:04"))
	document.AddEmptyParagraph()

	for _, section := range layout.Sections {
		document.AddHeading(section.Title, 1)

		if section.ID == templates.SectionDataSummary {
			r.writeTable(document, wb.First())
			document.AddEmptyParagraph()
			continue
		}

		text, items := sectionBody(result, section.ID)
		if text != "" {
			document.AddParagraph(text)
		}
		listStyle := "List Bullet"
		if section.ID == templates.SectionRecommendations {
			listStyle = "List Number"
		}
		for _, item := range items {
			document.AddParagraph(item).Style(listStyle)
		}
		document.AddEmptyParagraph()
	}

	document.AddParagraph(labels.Footer + " | " + meta.Generated.Format("2006-01-02"))

	return saveToBytes(document)
}

func (r *WordRenderer) writeTable(document *docx.RootDoc, t *tabular.Table) {
	header, rows := summaryRows(t, r.cfg.SummaryTableRows, r.cfg.SummaryTableCols)
	if len(header) == 0 {
		document.AddParagraph("(no data)")
		return
	}

	table := document.AddTable()
	table.Style("LightGrid-Accent1")

	hdrRow := table.AddRow()
	for _, name := range header {
		hdrRow.AddCell().AddParagraph(name)
	}

	for _, row := range rows {
		tblRow := table.AddRow()
		for _, cell := range row {
			tblRow.AddCell().AddParagraph(cell)
		}
	}
}

// saveToBytes serializes the document through a scratch file; the library
// only exposes path-based saving.
func saveToBytes(document *docx.RootDoc) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "reportai-docx-")
	if err != nil {
		return nil, apperrors.NewRenderError("failed to create scratch directory", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "report.docx")
	if err := document.SaveTo(path); err != nil {
		return nil, apperrors.NewRenderError("failed to write document", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewRenderError("failed to read rendered document", err)
	}
	if len(data) == 0 {
		return nil, apperrors.NewRenderError("word renderer produced no output", nil)
	}
	return data, nil
}
