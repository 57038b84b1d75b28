package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/tabular"
	"reportai/internal/templates"
)

// ExcelRenderer produces a workbook with a narrative summary sheet and a data
// sheet reproducing the full source table.
type ExcelRenderer struct {
	cfg config.ReportConfig
}

// Format implements Renderer.
func (r *ExcelRenderer) Format() Format { return FormatExcel }

// Render implements Renderer.
func (r *ExcelRenderer) Render(result *analysis.Result, wb *tabular.Workbook, meta Metadata, layout *templates.Layout) ([]byte, error) {
	if err := validateInput(result, wb, layout); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	labels := layout.Labels
	summarySheet := labels.SummarySheet
	dataSheet := labels.DataSheet
	f.SetSheetName(f.GetSheetName(0), summarySheet)

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 18, Bold: true}})
	if err != nil {
		return nil, apperrors.NewRenderError("failed to create title style", err)
	}
	headingStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 14, Bold: true}})
	if err != nil {
		return nil, apperrors.NewRenderError("failed to create heading style", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C8E6D7"}, Pattern: 1},
	})
	if err != nil {
		return nil, apperrors.NewRenderError("failed to create header style", err)
	}

	// Summary sheet: title, metadata block, then cell-per-paragraph sections
	f.SetCellValue(summarySheet, "A1", meta.Title)
	f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)

	metaRows := [][2]string{
		{labels.Date, meta.Date},
		{labels.Company, orDefault(meta.Company, labels.NotAvailable)},
		{labels.Author, orDefault(meta.Author, labels.NotAvailable)},
		{labels.Generated, meta.Generated.Format("2006-01-02 15:04")},
	}
	row := 3
	for _, mr := range metaRows {
		f.SetCellValue(summarySheet, cell("A", row), mr[0])
		f.SetCellValue(summarySheet, cell("B", row), mr[1])
		row++
	}
	row++

	for _, section := range layout.Sections {
		if section.ID == templates.SectionDataSummary {
			// The full table lives on the data sheet; the summary sheet
			// points at it instead of duplicating rows.
			continue
		}

		f.SetCellValue(summarySheet, cell("A", row), section.Title)
		f.SetCellStyle(summarySheet, cell("A", row), cell("A", row), headingStyle)
		row++

		text, items := sectionBody(result, section.ID)
		if text != "" {
			f.SetCellValue(summarySheet, cell("A", row), text)
			row++
		}
		for _, item := range items {
			f.SetCellValue(summarySheet, cell("A", row), "• "+item)
			row++
		}
		row++
	}

	if err := r.writeDataSheet(f, dataSheet, headerStyle, wb.First()); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewRenderError("failed to build workbook", err)
	}
	if buf.Len() == 0 {
		return nil, apperrors.NewRenderError("excel renderer produced no output", nil)
	}
	return buf.Bytes(), nil
}

// writeDataSheet reproduces the full source table with a frozen, bolded
// header row.
func (r *ExcelRenderer) writeDataSheet(f *excelize.File, sheet string, headerStyle int, t *tabular.Table) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.NewRenderError("failed to create data sheet", err)
	}

	for col, name := range t.ColumnNames() {
		ref, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return apperrors.NewRenderError("invalid cell coordinates", err)
		}
		f.SetCellValue(sheet, ref, name)
		f.SetCellStyle(sheet, ref, ref, headerStyle)
	}

	for i := 0; i < t.RowCount(); i++ {
		for col, c := range t.Columns {
			ref, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return apperrors.NewRenderError("invalid cell coordinates", err)
			}
			cellValue := c.Cells[i]
			switch {
			case cellValue.Null:
				// blank cell stays blank, never zero
			case cellValue.Numeric:
				f.SetCellValue(sheet, ref, cellValue.Number)
			default:
				f.SetCellValue(sheet, ref, cellValue.Raw)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return apperrors.NewRenderError("failed to freeze header row", err)
	}

	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
