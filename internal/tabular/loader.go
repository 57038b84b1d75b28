package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "reportai/internal/errors"
)

// SourceClass identifies the accepted upload format families.
type SourceClass string

const (
	ClassSpreadsheet SourceClass = "spreadsheet"
	ClassCSV         SourceClass = "csv"
)

// Classify maps a filename extension to its source class. Extensions outside
// the spreadsheet/CSV families are rejected.
func Classify(ext string) (SourceClass, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "xlsx", "xls":
		return ClassSpreadsheet, nil
	case "csv":
		return ClassCSV, nil
	default:
		return "", apperrors.NewUnsupportedFormatError(ext)
	}
}

// Load parses raw uploaded bytes into a normalized workbook and derives the
// preview from the same parse pass. previewRows bounds Preview.FirstRows.
func Load(data []byte, ext string, previewRows int) (*Workbook, *Preview, error) {
	class, err := Classify(ext)
	if err != nil {
		return nil, nil, err
	}

	var wb *Workbook
	switch class {
	case ClassCSV:
		wb, err = loadCSV(data)
	default:
		wb, err = loadExcel(data)
	}
	if err != nil {
		return nil, nil, err
	}

	return wb, buildPreview(wb, previewRows), nil
}

// loadCSV decodes CSV bytes into a single-sheet workbook.
func loadCSV(data []byte) (*Workbook, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParseError("malformed CSV content", err)
		}
		rows = append(rows, record)
	}

	table, err := buildTable("Sheet1", rows)
	if err != nil {
		return nil, err
	}

	return &Workbook{Sheets: []Table{*table}}, nil
}

// loadExcel decodes workbook bytes into one table per sheet.
func loadExcel(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewParseError("corrupt or unreadable workbook", err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, apperrors.NewParseError(fmt.Sprintf("failed to read sheet %q", name), err)
		}
		table, err := buildTable(name, rows)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, *table)
	}

	if len(wb.Sheets) == 0 {
		return nil, apperrors.NewParseError("workbook contains no sheets", nil)
	}

	return wb, nil
}

// buildTable normalizes raw rows into typed columns. The first row is the
// header; a missing header cell gets a positional name. Blank cells become
// null markers.
func buildTable(name string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		// An empty source still yields a valid zero-row table.
		return &Table{Name: name}, nil
	}

	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := make([]Column, width)
	for j := range columns {
		colName := ""
		if j < len(header) {
			colName = strings.TrimSpace(header[j])
		}
		if colName == "" {
			colName = fmt.Sprintf("Column%d", j+1)
		}
		columns[j] = Column{Name: colName, Cells: make([]Cell, 0, len(rows)-1)}
	}

	for _, row := range rows[1:] {
		for j := range columns {
			raw := ""
			if j < len(row) {
				raw = strings.TrimSpace(row[j])
			}
			columns[j].Cells = append(columns[j].Cells, makeCell(raw))
		}
	}

	for j := range columns {
		columns[j].Kind = inferKind(columns[j].Cells)
	}

	return &Table{Name: name, Columns: columns}, nil
}

// makeCell normalizes one raw value. Thousands separators are stripped before
// numeric parsing so formatted figures like "1,250" stay numeric.
func makeCell(raw string) Cell {
	if raw == "" {
		return Cell{Raw: NullMarker, Null: true}
	}
	if num, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64); err == nil {
		return Cell{Raw: raw, Number: num, Numeric: true}
	}
	return Cell{Raw: raw}
}

// inferKind types a column as numeric when every non-null cell parses as a
// number and at least one such cell exists.
func inferKind(cells []Cell) ColumnKind {
	seen := false
	for _, c := range cells {
		if c.Null {
			continue
		}
		if !c.Numeric {
			return KindText
		}
		seen = true
	}
	if seen {
		return KindNumeric
	}
	return KindText
}

// buildPreview truncates the first sheet to previewRows rows without copying
// the underlying table. Null cells surface as nil values.
func buildPreview(wb *Workbook, previewRows int) *Preview {
	first := wb.First()

	preview := &Preview{
		Rows:        first.RowCount(),
		Columns:     len(first.Columns),
		ColumnNames: first.ColumnNames(),
		FirstRows:   make([]map[string]interface{}, 0, previewRows),
		Sheets:      wb.SheetNames(),
	}

	limit := first.RowCount()
	if previewRows < limit {
		limit = previewRows
	}

	for i := 0; i < limit; i++ {
		row := make(map[string]interface{}, len(first.Columns))
		for _, col := range first.Columns {
			cell := col.Cells[i]
			switch {
			case cell.Null:
				row[col.Name] = nil
			case cell.Numeric:
				row[col.Name] = cell.Number
			default:
				row[col.Name] = cell.Raw
			}
		}
		preview.FirstRows = append(preview.FirstRows, row)
	}

	return preview
}
