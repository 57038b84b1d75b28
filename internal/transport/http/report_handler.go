package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "reportai/internal/errors"
	"reportai/internal/services"
)

// defaultMaxUploadBytes bounds the multipart body when no limit is configured.
const defaultMaxUploadBytes = 25 << 20

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ReportHandler exposes the report pipeline over HTTP with RFC 7807 errors.
type ReportHandler struct {
	service      ReportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
}

// NewReportHandler creates the handler with its dependencies. maxUpload <= 0
// falls back to the built-in limit.
func NewReportHandler(service ReportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUpload int64) *ReportHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &ReportHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
	}
}

// Routes returns the report routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", h.Upload)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/analyze", h.Analyze)
		r.Post("/generate", h.Generate)
		r.Delete("/cleanup/{fileID}", h.Cleanup)
	})

	r.Get("/download/{artifactID}", h.Download)

	return r
}

// Upload accepts a multipart form with a single "file" field.
func (h *ReportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("request is not valid multipart form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("reading uploaded file", err))
		return
	}

	result, err := h.service.Upload(r.Context(), data, header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// Analyze runs or reuses the narrative analysis for an uploaded file.
func (h *ReportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req services.AnalyzeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("request body is not valid JSON"))
		return
	}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Generate renders a report and responds with the artifact reference.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req services.ReportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("request body is not valid JSON"))
		return
	}

	result, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// Download streams a rendered report back to the client.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	artifactID := chi.URLParam(r, "artifactID")
	if artifactID == "" {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("artifact ID is required"))
		return
	}

	data, artifact, err := h.service.Download(r.Context(), artifactID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ext := strings.ToLower(filepath.Ext(artifact.OriginalName))
	contentType, ok := contentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", artifact.OriginalName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(r.Context(), "writing download response",
			slog.String("artifact_id", artifactID),
			slog.String("error", err.Error()))
	}
}

// Cleanup deletes an upload and its cached analyses. Always 204 on success,
// including when the file was already gone.
func (h *ReportHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if fileID == "" {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("file ID is required"))
		return
	}

	if err := h.service.Cleanup(r.Context(), fileID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
