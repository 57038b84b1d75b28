package services

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/store"
	"reportai/internal/templates"
)

const sampleCSV = "Batch,Value,Status\nB-1,10.5,pass\nB-2,11.2,pass\nB-3,9.8,fail\nB-4,10.1,pass\nB-5,10.9,pass\n"

func newTestService(t *testing.T) (*ReportService, *analysis.Requester) {
	t.Helper()

	uploads, err := store.New(t.TempDir(), time.Hour, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(uploads.Close)

	outputs, err := store.New(t.TempDir(), time.Hour, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(outputs.Close)

	requester := analysis.NewRequester(analysis.MockProvider{}, nil, time.Second, 5)
	cfg := config.ReportConfig{PreviewRows: 10, SummaryTableRows: 10, SummaryTableCols: 6}
	return NewReportService(uploads, outputs, requester, NopMetrics(), cfg, nil), requester
}

func TestUpload(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.Upload(context.Background(), []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)

	assert.NotEmpty(t, result.FileID)
	assert.Equal(t, "batches.csv", result.Filename)
	assert.Equal(t, 5, result.Preview.Rows)
	assert.Equal(t, 3, result.Preview.Columns)
	assert.Len(t, result.Preview.FirstRows, 5)
	assert.Equal(t, "B-1", result.Preview.FirstRows[0]["Batch"])
	assert.Equal(t, 10.5, result.Preview.FirstRows[0]["Value"])
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), []byte("hello"), "notes.txt")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnsupportedFormat))
}

func TestUploadRejectsMalformedContent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), []byte("not a zip"), "data.xlsx")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParse))
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), nil, "data.csv")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestAnalyze(t *testing.T) {
	svc, requester := newTestService(t)

	up, err := svc.Upload(context.Background(), []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		FileID:       up.FileID,
		TemplateType: "quality",
		Language:     "en",
	})
	require.NoError(t, err)
	assert.True(t, result.Complete())

	// The result is cached for the triple.
	assert.Same(t, result, requester.Cached(up.FileID, templates.TypeQuality, templates.LangEnglish))
}

func TestAnalyzeUnknownTemplateNothingCached(t *testing.T) {
	svc, requester := newTestService(t)

	up, err := svc.Upload(context.Background(), []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), AnalyzeRequest{
		FileID:       up.FileID,
		TemplateType: "quality",
		Language:     "de",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnknownTemplate))

	for _, lang := range []templates.Language{templates.LangEnglish, templates.LangFinnish} {
		assert.Nil(t, requester.Cached(up.FileID, templates.TypeQuality, lang))
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{
		FileID:       "20260828T000000_deadbeef_gone.csv",
		TemplateType: "quality",
		Language:     "en",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestGenerateDownloadCleanupFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	up, err := svc.Upload(ctx, []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)

	gen, err := svc.Generate(ctx, ReportRequest{
		FileID:       up.FileID,
		TemplateType: "quality",
		Title:        "Line 2 Audit",
		Date:         "2026-08-28",
		Company:      "Acme",
		Format:       "pdf",
		Language:     "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "pdf", gen.Format)
	assert.Contains(t, gen.Filename, "quality_2026-08-28_")

	data, artifact, err := svc.Download(ctx, gen.ArtifactID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "Line 2 Audit")
	assert.Equal(t, gen.Filename, artifact.OriginalName)

	require.NoError(t, svc.Cleanup(ctx, up.FileID))

	// The upload is gone; the generated artifact is untouched.
	_, err = svc.Analyze(ctx, AnalyzeRequest{FileID: up.FileID, TemplateType: "quality", Language: "en"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	_, _, err = svc.Download(ctx, gen.ArtifactID)
	assert.NoError(t, err)

	// Cleanup is idempotent.
	require.NoError(t, svc.Cleanup(ctx, up.FileID))
}

func TestGenerateAllFormats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	up, err := svc.Upload(ctx, []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)

	magics := map[string][]byte{
		"pdf":   []byte("%PDF-"),
		"word":  []byte("PK"),
		"excel": []byte("PK"),
	}
	for format, magic := range magics {
		t.Run(format, func(t *testing.T) {
			gen, err := svc.Generate(ctx, ReportRequest{
				FileID:       up.FileID,
				TemplateType: "testing",
				Title:        "Format Matrix",
				Date:         "2026-08-28",
				Format:       format,
				Language:     "fi",
			})
			require.NoError(t, err)

			data, _, err := svc.Download(ctx, gen.ArtifactID)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, magic))
		})
	}
}

func TestGenerateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  ReportRequest
	}{
		{
			name: "missing title",
			req:  ReportRequest{FileID: "x", TemplateType: "quality", Date: "2026-08-28", Format: "pdf", Language: "en"},
		},
		{
			name: "bad date",
			req:  ReportRequest{FileID: "x", TemplateType: "quality", Title: "T", Date: "28.08.2026", Format: "pdf", Language: "en"},
		},
		{
			name: "bad format",
			req:  ReportRequest{FileID: "x", TemplateType: "quality", Title: "T", Date: "2026-08-28", Format: "html", Language: "en"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation), "got %v", err)
		})
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	svc, _ := newTestService(t)

	for _, req := range []ReportRequest{
		{FileID: "x", TemplateType: "sales", Title: "T", Date: "2026-08-28", Format: "pdf", Language: "en"},
		{FileID: "x", TemplateType: "quality", Title: "T", Date: "2026-08-28", Format: "pdf", Language: "sv"},
	} {
		_, err := svc.Generate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnknownTemplate), "got %v", err)
	}
}

func TestGenerateMissingFile(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Generate(context.Background(), ReportRequest{
		FileID:       "20260828T000000_deadbeef_gone.csv",
		TemplateType: "quality",
		Title:        "T",
		Date:         "2026-08-28",
		Format:       "pdf",
		Language:     "en",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestDownloadUnknownArtifact(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Download(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

// normalizePDFTimestamps blanks the only render inputs that vary between two
// otherwise identical generate calls: the document CreationDate and the
// generated-at lines in the page content. The replacements are applied to
// both documents so the remaining bytes must match exactly.
func normalizePDFTimestamps(data []byte) string {
	s := string(data)
	s = regexp.MustCompile(`/CreationDate \(D:[^)]*\)`).ReplaceAllString(s, "/CreationDate (D:0)")
	s = regexp.MustCompile(`/ModDate \(D:[^)]*\)`).ReplaceAllString(s, "/ModDate (D:0)")
	s = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}`).ReplaceAllString(s, "0000-00-00 00:00")
	return s
}

func TestGenerateTwiceProducesEqualContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	up, err := svc.Upload(ctx, []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)

	req := ReportRequest{
		FileID:       up.FileID,
		TemplateType: "quality",
		Title:        "Line 2 Audit",
		Date:         "2026-08-28",
		Company:      "Acme",
		Format:       "pdf",
		Language:     "en",
	}

	first, err := svc.Generate(ctx, req)
	require.NoError(t, err)
	second, err := svc.Generate(ctx, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ArtifactID, second.ArtifactID)

	firstData, _, err := svc.Download(ctx, first.ArtifactID)
	require.NoError(t, err)
	secondData, _, err := svc.Download(ctx, second.ArtifactID)
	require.NoError(t, err)

	assert.Equal(t, normalizePDFTimestamps(firstData), normalizePDFTimestamps(secondData))
}

func TestMetricsCountOperations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	up, err := svc.Upload(ctx, []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.Uploads))

	_, err = svc.Analyze(ctx, AnalyzeRequest{FileID: up.FileID, TemplateType: "quality", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.Analyses.WithLabelValues("ok")))

	_, err = svc.Generate(ctx, ReportRequest{
		FileID:       up.FileID,
		TemplateType: "quality",
		Title:        "T",
		Date:         "2026-08-28",
		Format:       "pdf",
		Language:     "en",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.Renders.WithLabelValues("pdf")))

	require.NoError(t, svc.Cleanup(ctx, up.FileID))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.Cleanups))
}

func TestGenerateReusesCachedAnalysis(t *testing.T) {
	counting := &countingProvider{}
	uploads, err := store.New(t.TempDir(), time.Hour, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(uploads.Close)
	outputs, err := store.New(t.TempDir(), time.Hour, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(outputs.Close)

	requester := analysis.NewRequester(counting, nil, time.Second, 5)
	cfg := config.ReportConfig{PreviewRows: 10, SummaryTableRows: 10, SummaryTableCols: 6}
	svc := NewReportService(uploads, outputs, requester, NopMetrics(), cfg, nil)

	ctx := context.Background()
	up, err := svc.Upload(ctx, []byte(sampleCSV), "batches.csv")
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, AnalyzeRequest{FileID: up.FileID, TemplateType: "field", Language: "en"})
	require.NoError(t, err)

	_, err = svc.Generate(ctx, ReportRequest{
		FileID:       up.FileID,
		TemplateType: "field",
		Title:        "T",
		Date:         "2026-08-28",
		Format:       "excel",
		Language:     "en",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, counting.calls)
}

// countingProvider delegates to the mock while counting round trips.
type countingProvider struct {
	calls int
}

func (p *countingProvider) Summarize(ctx context.Context, req analysis.Request) (string, error) {
	p.calls++
	return analysis.MockProvider{}.Summarize(ctx, req)
}
