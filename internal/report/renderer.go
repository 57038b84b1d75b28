// Package report renders a structured analysis and its source table into a
// downloadable document. Each output format is an independent, stateless
// renderer behind one interface; call sites stay format-agnostic.
package report

import (
	"fmt"
	"strings"
	"time"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/tabular"
	"reportai/internal/templates"
)

// Format identifies an output document encoding.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatWord  Format = "word"
	FormatExcel Format = "excel"
)

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatWord:
		return "docx"
	case FormatExcel:
		return "xlsx"
	default:
		return "pdf"
	}
}

// ParseFormat validates a raw output format value.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatPDF, FormatWord, FormatExcel:
		return Format(raw), nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", raw))
	}
}

// Metadata is the per-report title block content.
type Metadata struct {
	Title     string
	Date      string
	Company   string
	Author    string
	Generated time.Time
}

// Renderer produces one document format from the shared input triple. A
// renderer holds no mutable state and never depends on another variant.
type Renderer interface {
	Format() Format
	Render(result *analysis.Result, wb *tabular.Workbook, meta Metadata, layout *templates.Layout) ([]byte, error)
}

// ForFormat returns the renderer variant for the format.
func ForFormat(format Format, cfg config.ReportConfig) (Renderer, error) {
	switch format {
	case FormatPDF:
		return &PDFRenderer{cfg: cfg}, nil
	case FormatWord:
		return &WordRenderer{cfg: cfg}, nil
	case FormatExcel:
		return &ExcelRenderer{cfg: cfg}, nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported output format %q", format))
	}
}

// Filename derives the suggested download name from template type and report
// date, with a generation timestamp for uniqueness.
func Filename(tt templates.TemplateType, date string, format Format, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s", tt, safeName(date), now.UTC().Format("20060102_150405"), format.Ext())
}

// validateInput rejects incomplete analyses before a single byte is written.
// A partially written file is strictly worse than a hard failure.
func validateInput(result *analysis.Result, wb *tabular.Workbook, layout *templates.Layout) error {
	if layout == nil {
		return apperrors.NewRenderError("missing template layout", nil)
	}
	if wb == nil || len(wb.Sheets) == 0 {
		return apperrors.NewRenderError("missing source table", nil)
	}
	if !result.Complete() {
		return apperrors.NewRenderError("analysis result is incomplete", nil)
	}
	return nil
}

// orDefault substitutes the localized not-available label for blank metadata.
func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// summaryRows bounds the data-summary block to the first maxRows rows of the
// first sheet and maxCols columns, mirroring the preview shape.
func summaryRows(t *tabular.Table, maxRows, maxCols int) (header []string, rows [][]string) {
	header = t.ColumnNames()
	if len(header) > maxCols {
		header = header[:maxCols]
	}

	limit := t.RowCount()
	if maxRows < limit {
		limit = maxRows
	}

	rows = make([][]string, 0, limit)
	for i := 0; i < limit; i++ {
		row := t.Row(i)
		if len(row) > maxCols {
			row = row[:maxCols]
		}
		rows = append(rows, row)
	}
	return header, rows
}

// sectionBody returns the analysis content belonging to a narrative section.
// The data-summary section has no narrative body; callers render the table
// block instead.
func sectionBody(result *analysis.Result, sectionID string) (text string, items []string) {
	switch sectionID {
	case templates.SectionExecutiveSummary:
		return result.ExecutiveSummary, nil
	case templates.SectionKeyFindings:
		return "", result.KeyFindings
	case templates.SectionStatisticalAnalysis:
		return result.StatisticalAnalysis, nil
	case templates.SectionRecommendations:
		return "", result.Recommendations
	case templates.SectionConclusion:
		return result.Conclusion, nil
	default:
		return "", nil
	}
}

// safeName replaces characters that do not belong in filenames.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		default:
			return r
		}
	}, s)
}
