package report

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/tabular"
	"reportai/internal/templates"
)

func testReportConfig() config.ReportConfig {
	return config.ReportConfig{PreviewRows: 10, SummaryTableRows: 10, SummaryTableCols: 6}
}

func testResult() *analysis.Result {
	return &analysis.Result{
		ExecutiveSummary:    "All batches passed the acceptance criteria without exception.",
		KeyFindings:         []string{"Yield is stable", "Variance is low"},
		StatisticalAnalysis: "Mean yield 98.2 with standard deviation 0.4.",
		Recommendations:     []string{"Keep the current sampling plan", "Audit supplier B"},
		Conclusion:          "The production line meets its quality targets.",
	}
}

// testWorkbook builds a 12-row, 7-column table so the summary caps bite.
func testWorkbook(t *testing.T) *tabular.Workbook {
	t.Helper()
	var b strings.Builder
	b.WriteString("C1,C2,C3,C4,C5,C6,C7\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "r%d,%d,%d,%d,%d,%d,x%d\n", i, i, i*2, i*3, i*4, i*5, i)
	}
	wb, _, err := tabular.Load([]byte(b.String()), ".csv", 10)
	require.NoError(t, err)
	return wb
}

func testLayout(t *testing.T, lang string) *templates.Layout {
	t.Helper()
	layout, err := templates.Lookup("quality", lang)
	require.NoError(t, err)
	return layout
}

func testMetadata() Metadata {
	return Metadata{
		Title:     "Q3 Line Audit",
		Date:      "2026-08-28",
		Company:   "Acme Instruments",
		Generated: time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	for _, raw := range []string{"pdf", "word", "excel"} {
		got, err := ParseFormat(raw)
		require.NoError(t, err)
		assert.Equal(t, Format(raw), got)
	}

	_, err := ParseFormat("html")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestFormatExt(t *testing.T) {
	assert.Equal(t, "pdf", FormatPDF.Ext())
	assert.Equal(t, "docx", FormatWord.Ext())
	assert.Equal(t, "xlsx", FormatExcel.Ext())
}

func TestForFormat(t *testing.T) {
	for _, format := range []Format{FormatPDF, FormatWord, FormatExcel} {
		r, err := ForFormat(format, testReportConfig())
		require.NoError(t, err)
		assert.Equal(t, format, r.Format())
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 30, 5, 0, time.UTC)
	name := Filename(templates.TypeQuality, "2026-08-28", FormatPDF, now)
	assert.Equal(t, "quality_2026-08-28_20260828_093005.pdf", name)

	// Hostile date values cannot smuggle separators into the filename.
	name = Filename(templates.TypeField, "28/08 2026", FormatExcel, now)
	assert.Equal(t, "field_28_08_2026_20260828_093005.xlsx", name)
}

func TestValidateInputRejectsIncomplete(t *testing.T) {
	wb := testWorkbook(t)
	layout := testLayout(t, "en")

	incomplete := testResult()
	incomplete.Conclusion = ""

	for _, format := range []Format{FormatPDF, FormatWord, FormatExcel} {
		r, err := ForFormat(format, testReportConfig())
		require.NoError(t, err)

		_, err = r.Render(incomplete, wb, testMetadata(), layout)
		require.Error(t, err, format)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRender), format)

		_, err = r.Render(testResult(), nil, testMetadata(), layout)
		require.Error(t, err, format)

		_, err = r.Render(testResult(), wb, testMetadata(), nil)
		require.Error(t, err, format)
	}
}

func TestSummaryRowsCaps(t *testing.T) {
	wb := testWorkbook(t)

	header, rows := summaryRows(wb.First(), 10, 6)
	assert.Len(t, header, 6)
	assert.Len(t, rows, 10)
	for _, row := range rows {
		assert.Len(t, row, 6)
	}
	assert.Equal(t, "C6", header[5])
	assert.Equal(t, "r1", rows[0][0])
}

func TestSummaryRowsSmallTable(t *testing.T) {
	wb, _, err := tabular.Load([]byte("A,B\n1,2\n"), ".csv", 10)
	require.NoError(t, err)

	header, rows := summaryRows(wb.First(), 10, 6)
	assert.Equal(t, []string{"A", "B"}, header)
	require.Len(t, rows, 1)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "N/A", orDefault("", "N/A"))
	assert.Equal(t, "N/A", orDefault("   ", "N/A"))
	assert.Equal(t, "Acme", orDefault("Acme", "N/A"))
}

func TestTruncateCell(t *testing.T) {
	assert.Equal(t, "short", truncateCell("short"))

	long := strings.Repeat("a", 40)
	got := truncateCell(long)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Less(t, len(got), len(long))
}

func TestTruncateCellMultibyte(t *testing.T) {
	long := strings.Repeat("ä", 40)
	got := truncateCell(long)

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, 22, utf8.RuneCountInString(got))

	// Exactly at the cap passes through untouched even though the byte
	// length exceeds it.
	exact := strings.Repeat("ä", 22)
	assert.Equal(t, exact, truncateCell(exact))
}
