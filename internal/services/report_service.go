// Package services implements the business operations behind the HTTP
// surface: upload, analyze, generate, download and cleanup. The service owns
// the ordering guarantees between those operations; transport handlers only
// translate requests and responses.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"reportai/internal/analysis"
	"reportai/internal/config"
	apperrors "reportai/internal/errors"
	"reportai/internal/report"
	"reportai/internal/store"
	"reportai/internal/tabular"
	"reportai/internal/templates"
)

// ReportRequest carries everything needed to assemble one report. Field names
// follow the public JSON contract.
// Template type and language are deliberately not constrained here: the
// registry lookup owns that decision and reports unknown combinations with
// the dedicated error type.
type ReportRequest struct {
	FileID       string `json:"file_id" validate:"required"`
	TemplateType string `json:"template_type" validate:"required"`
	Title        string `json:"report_title" validate:"required,max=200"`
	Date         string `json:"report_date" validate:"required,datetime=2006-01-02"`
	Company      string `json:"company_name" validate:"omitempty,max=200"`
	Author       string `json:"author_name" validate:"omitempty,max=200"`
	Format       string `json:"output_format" validate:"required,oneof=pdf word excel"`
	Language     string `json:"language" validate:"required"`
}

// AnalyzeRequest selects a stored upload and the narrative framing for it.
type AnalyzeRequest struct {
	FileID       string `json:"file_id" validate:"required"`
	TemplateType string `json:"template_type" validate:"required"`
	Language     string `json:"language" validate:"required"`
	Force        bool   `json:"force"`
}

// UploadResult is returned to the caller after a successful ingest.
type UploadResult struct {
	FileID   string           `json:"file_id"`
	Filename string           `json:"filename"`
	Size     int64            `json:"size"`
	Preview  *tabular.Preview `json:"preview"`
}

// GenerateResult identifies the rendered artifact.
type GenerateResult struct {
	ArtifactID string `json:"artifact_id"`
	Filename   string `json:"filename"`
	Format     string `json:"format"`
	Size       int64  `json:"size"`
}

// ReportService wires the tabular loader, the analysis requester, the
// template registry and the renderers over two artifact stores.
type ReportService struct {
	uploads   *store.Store
	outputs   *store.Store
	requester *analysis.Requester
	validate  *validator.Validate
	metrics   *Metrics
	logger    *slog.Logger
	cfg       config.ReportConfig
}

// NewReportService builds the service. Both stores must be distinct.
func NewReportService(uploads, outputs *store.Store, requester *analysis.Requester, metrics *Metrics, cfg config.ReportConfig, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &ReportService{
		uploads:   uploads,
		outputs:   outputs,
		requester: requester,
		validate:  validator.New(),
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Upload validates and parses a tabular file, stores the original bytes and
// returns the new file ID with a bounded preview. Files that fail extension
// classification or parsing are never stored.
func (s *ReportService) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("uploaded file is empty")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, err := tabular.Classify(ext); err != nil {
		return nil, err
	}

	_, preview, err := tabular.Load(data, ext, s.cfg.PreviewRows)
	if err != nil {
		return nil, err
	}

	artifact, err := s.uploads.Put(data, filepath.Base(filename))
	if err != nil {
		return nil, err
	}

	s.metrics.Uploads.Inc()
	s.logger.InfoContext(ctx, "file uploaded",
		slog.String("file_id", artifact.ID),
		slog.String("filename", artifact.OriginalName),
		slog.Int64("size", artifact.Size),
		slog.Int("rows", preview.Rows),
		slog.Int("columns", preview.Columns))

	return &UploadResult{
		FileID:   artifact.ID,
		Filename: artifact.OriginalName,
		Size:     artifact.Size,
		Preview:  preview,
	}, nil
}

// Analyze produces (or returns the cached) narrative analysis for a stored
// upload under the given template framing and language.
func (s *ReportService) Analyze(ctx context.Context, req AnalyzeRequest) (*analysis.Result, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	// Template resolution happens before any provider work so an unknown
	// combination can never populate the cache.
	layout, err := templates.Lookup(req.TemplateType, req.Language)
	if err != nil {
		return nil, err
	}

	wb, err := s.loadUpload(req.FileID)
	if err != nil {
		return nil, err
	}

	result, err := s.requester.Analyze(ctx, req.FileID, wb.First(), layout.TemplateType, layout.Language, req.Force)
	if err != nil {
		s.metrics.Analyses.WithLabelValues(outcomeFor(err)).Inc()
		return nil, err
	}
	s.metrics.Analyses.WithLabelValues("ok").Inc()

	s.logger.InfoContext(ctx, "analysis completed",
		slog.String("file_id", req.FileID),
		slog.String("template_type", req.TemplateType),
		slog.String("language", req.Language))
	return result, nil
}

// Generate assembles one report document and stores it as a downloadable
// artifact. The source upload is pinned for the duration of the render so a
// concurrent cleanup cannot pull it out from underneath.
func (s *ReportService) Generate(ctx context.Context, req ReportRequest) (*GenerateResult, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	layout, err := templates.Lookup(req.TemplateType, req.Language)
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	renderer, err := report.ForFormat(format, s.cfg)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.Acquire(req.FileID); err != nil {
		return nil, err
	}
	defer s.uploads.Release(req.FileID)

	wb, err := s.loadUpload(req.FileID)
	if err != nil {
		return nil, err
	}

	result, err := s.requester.Analyze(ctx, req.FileID, wb.First(), layout.TemplateType, layout.Language, false)
	if err != nil {
		s.metrics.Analyses.WithLabelValues(outcomeFor(err)).Inc()
		return nil, err
	}

	now := time.Now()
	meta := report.Metadata{
		Title:     req.Title,
		Date:      req.Date,
		Company:   req.Company,
		Author:    req.Author,
		Generated: now,
	}
	data, err := renderer.Render(result, wb, meta, layout)
	if err != nil {
		return nil, err
	}

	filename := report.Filename(layout.TemplateType, req.Date, format, now)
	artifact, err := s.outputs.Put(data, filename)
	if err != nil {
		return nil, err
	}

	s.metrics.Renders.WithLabelValues(string(format)).Inc()
	s.logger.InfoContext(ctx, "report generated",
		slog.String("file_id", req.FileID),
		slog.String("artifact_id", artifact.ID),
		slog.String("format", string(format)),
		slog.Int64("size", artifact.Size))

	return &GenerateResult{
		ArtifactID: artifact.ID,
		Filename:   filename,
		Format:     string(format),
		Size:       artifact.Size,
	}, nil
}

// Download returns the stored document bytes and its metadata.
func (s *ReportService) Download(ctx context.Context, artifactID string) ([]byte, *store.Artifact, error) {
	artifact, err := s.outputs.Stat(artifactID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.outputs.Get(artifactID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "artifact downloaded",
		slog.String("artifact_id", artifactID),
		slog.Int("size", len(data)))
	return data, artifact, nil
}

// Cleanup removes an uploaded file and drops every cached analysis derived
// from it. Missing files are not an error; cleanup is idempotent.
func (s *ReportService) Cleanup(ctx context.Context, fileID string) error {
	if err := s.uploads.Delete(fileID); err != nil && !apperrors.IsType(err, apperrors.ErrTypeNotFound) {
		return err
	}
	s.requester.Invalidate(fileID)
	s.metrics.Cleanups.Inc()
	s.logger.InfoContext(ctx, "upload cleaned up", slog.String("file_id", fileID))
	return nil
}

// SweepExpired purges artifacts past their TTL in both stores.
func (s *ReportService) SweepExpired() int {
	return s.uploads.SweepOnce() + s.outputs.SweepOnce()
}

// loadUpload re-parses a stored upload from its byte snapshot.
func (s *ReportService) loadUpload(fileID string) (*tabular.Workbook, error) {
	artifact, err := s.uploads.Stat(fileID)
	if err != nil {
		return nil, err
	}
	data, err := s.uploads.Get(fileID)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(artifact.OriginalName))
	wb, _, err := tabular.Load(data, ext, s.cfg.PreviewRows)
	return wb, err
}

func (s *ReportService) validateStruct(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		var errs validator.ValidationErrors
		if ok := errors.As(err, &errs); ok && len(errs) > 0 {
			fe := errs[0]
			return apperrors.NewValidationError(
				fmt.Sprintf("field %s failed validation on %q", fieldJSONName(fe), fe.Tag()))
		}
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

func fieldJSONName(fe validator.FieldError) string {
	// Field() reports the Go name; the JSON contract uses snake_case.
	switch fe.Field() {
	case "FileID":
		return "file_id"
	case "TemplateType":
		return "template_type"
	case "Title":
		return "report_title"
	case "Date":
		return "report_date"
	case "Company":
		return "company_name"
	case "Author":
		return "author_name"
	case "Format":
		return "output_format"
	case "Language":
		return "language"
	default:
		return fe.Field()
	}
}

func outcomeFor(err error) string {
	switch {
	case apperrors.IsType(err, apperrors.ErrTypeProviderUnavailable):
		return "provider_unavailable"
	case apperrors.IsType(err, apperrors.ErrTypeMalformedAIResponse):
		return "malformed_response"
	default:
		return "error"
	}
}
