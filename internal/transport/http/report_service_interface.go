package http

import (
	"context"

	"reportai/internal/analysis"
	"reportai/internal/services"
	"reportai/internal/store"
)

// ReportServiceInterface is the contract the handlers need from the service
// layer. Tests substitute a stub implementation.
type ReportServiceInterface interface {
	Upload(ctx context.Context, data []byte, filename string) (*services.UploadResult, error)
	Analyze(ctx context.Context, req services.AnalyzeRequest) (*analysis.Result, error)
	Generate(ctx context.Context, req services.ReportRequest) (*services.GenerateResult, error)
	Download(ctx context.Context, artifactID string) ([]byte, *store.Artifact, error)
	Cleanup(ctx context.Context, fileID string) error
}
