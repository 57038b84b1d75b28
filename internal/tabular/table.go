package tabular

// NullMarker is the designated representation of a blank cell. Blank cells are
// never coerced to zero.
const NullMarker = ""

// ColumnKind classifies a column after type inference.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
)

// Cell is a single normalized table value.
type Cell struct {
	Raw     string  // original trimmed text, NullMarker when blank
	Number  float64 // parsed value, valid only when Numeric
	Null    bool
	Numeric bool
}

// Column is a named, typed column of cells.
type Column struct {
	Name  string
	Kind  ColumnKind
	Cells []Cell
}

// Table is one normalized sheet: a list of typed columns of equal length.
type Table struct {
	Name    string
	Columns []Column
}

// RowCount returns the number of data rows (headers excluded).
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// ColumnNames returns the ordered header names.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row returns row i as display strings, null cells as NullMarker.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		if i < len(c.Cells) {
			row[j] = c.Cells[i].Raw
		}
	}
	return row
}

// Workbook is a parsed tabular source: one or more named sheets in source
// order. CSV sources yield exactly one implicit sheet.
type Workbook struct {
	Sheets []Table
}

// First returns the first sheet. Loaders guarantee at least one sheet.
func (w *Workbook) First() *Table {
	return &w.Sheets[0]
}

// SheetNames returns the ordered sheet names.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Preview is a lightweight read-only summary of the first sheet, derived in
// the same parse pass as the full load.
type Preview struct {
	Rows        int                      `json:"rows"`
	Columns     int                      `json:"columns"`
	ColumnNames []string                 `json:"column_names"`
	FirstRows   []map[string]interface{} `json:"first_rows"`
	Sheets      []string                 `json:"sheets"`
}
