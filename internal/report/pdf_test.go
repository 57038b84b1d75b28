package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportai/internal/tabular"
)

func renderPDF(t *testing.T, lang string) []byte {
	t.Helper()
	r, err := ForFormat(FormatPDF, testReportConfig())
	require.NoError(t, err)

	data, err := r.Render(testResult(), testWorkbook(t), testMetadata(), testLayout(t, lang))
	require.NoError(t, err)
	return data
}

func TestPDFRender(t *testing.T) {
	data := renderPDF(t, "en")

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "%%EOF")

	// Compression is off, so the content stream is searchable.
	text := string(data)
	assert.Contains(t, text, "Q3 Line Audit")
	assert.Contains(t, text, "All batches passed the acceptance criteria without exception.")
	assert.Contains(t, text, "Executive Summary")
	assert.Contains(t, text, "Recommendations")
	assert.Contains(t, text, "1. Keep the current sampling plan")
	assert.Contains(t, text, "The production line meets its quality targets.")
	assert.Contains(t, text, "Generated by ReportAI")
}

func TestPDFRenderMetadataDefaults(t *testing.T) {
	r, err := ForFormat(FormatPDF, testReportConfig())
	require.NoError(t, err)

	meta := testMetadata()
	meta.Company = ""
	meta.Author = ""

	data, err := r.Render(testResult(), testWorkbook(t), meta, testLayout(t, "en"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "N/A")
}

func TestPDFRenderTableCapped(t *testing.T) {
	data := renderPDF(t, "en")
	text := string(data)

	// First 10 rows of the summary table are present; rows 11-12 are not.
	assert.Contains(t, text, "r10")
	assert.NotContains(t, text, "(r11)")
	// The seventh column is cut by the column cap.
	assert.Contains(t, text, "(C6)")
	assert.NotContains(t, text, "(C7)")
}

func TestPDFRenderFinnish(t *testing.T) {
	data := renderPDF(t, "fi")
	text := string(data)

	// ASCII-only Finnish headings survive the cp1252 translation verbatim.
	assert.Contains(t, text, "Keskeiset havainnot")
	assert.Contains(t, text, "Suositukset")
	assert.NotContains(t, text, "Recommendations")
}

func TestPDFRenderManyRowsPaginates(t *testing.T) {
	var b strings.Builder
	b.WriteString("Reading\n")
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	wb, _, err := tabular.Load([]byte(b.String()), ".csv", 10)
	require.NoError(t, err)

	// Raise the row cap so the table alone spans pages.
	cfg := testReportConfig()
	cfg.SummaryTableRows = 80

	r, err := ForFormat(FormatPDF, cfg)
	require.NoError(t, err)

	data, err := r.Render(testResult(), wb, testMetadata(), testLayout(t, "en"))
	require.NoError(t, err)

	// The header row repeats after each page break inside the table.
	assert.GreaterOrEqual(t, strings.Count(string(data), "(Reading)"), 2)
}
