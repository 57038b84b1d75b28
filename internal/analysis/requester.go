package analysis

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "reportai/internal/errors"
	"reportai/internal/tabular"
	"reportai/internal/templates"
)

// Requester converts tables into structured analyses through the AI provider.
// Results are cached per (file, template type, language) triple; duplicate
// in-flight calls for the same triple are coalesced into one provider round
// trip.
type Requester struct {
	provider      Provider
	logger        *slog.Logger
	timeout       time.Duration
	maxCategories int

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*Result
}

// NewRequester creates an analysis requester. timeout bounds each provider
// call; maxCategories caps digest categories per text column.
func NewRequester(provider Provider, logger *slog.Logger, timeout time.Duration, maxCategories int) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{
		provider:      provider,
		logger:        logger.With(slog.String("component", "analysis_requester")),
		timeout:       timeout,
		maxCategories: maxCategories,
		cache:         make(map[string]*Result),
	}
}

func cacheKey(fileID string, tt templates.TemplateType, lang templates.Language) string {
	return fileID + "|" + string(tt) + "|" + string(lang)
}

// Analyze returns the structured analysis for the triple, reusing the cached
// result when present. force bypasses the cache and overwrites it on success
// (explicit re-analysis).
func (r *Requester) Analyze(ctx context.Context, fileID string, table *tabular.Table, tt templates.TemplateType, lang templates.Language, force bool) (*Result, error) {
	key := cacheKey(fileID, tt, lang)

	if !force {
		r.mu.RLock()
		cached := r.cache[key]
		r.mu.RUnlock()
		if cached != nil {
			r.logger.DebugContext(ctx, "analysis cache hit", slog.String("key", key))
			return cached, nil
		}
	}

	// singleflight coalesces concurrent duplicate triples; only the winning
	// call talks to the provider. No lock is held across the provider call.
	value, err, shared := r.group.Do(key, func() (interface{}, error) {
		return r.analyzeOnce(ctx, fileID, table, tt, lang)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.DebugContext(ctx, "coalesced duplicate analysis request", slog.String("key", key))
	}

	result := value.(*Result)

	r.mu.Lock()
	r.cache[key] = result
	r.mu.Unlock()

	return result, nil
}

// analyzeOnce performs one full digest → provider → parse cycle, with exactly
// one reformat retry when the response does not fit the schema. Availability
// failures are never retried here.
func (r *Requester) analyzeOnce(ctx context.Context, fileID string, table *tabular.Table, tt templates.TemplateType, lang templates.Language) (*Result, error) {
	digest := tabular.BuildDigest(table, r.maxCategories)

	req := Request{
		Digest:       digest.Text(),
		TemplateType: tt,
		Language:     lang,
	}

	r.logger.InfoContext(ctx, "requesting analysis",
		slog.String("file_id", fileID),
		slog.String("template_type", string(tt)),
		slog.String("language", string(lang)),
		slog.Int("rows", digest.Rows))

	result, err := r.callAndParse(ctx, req)
	if err == nil {
		return result, nil
	}
	if !apperrors.IsType(err, apperrors.ErrTypeMalformedAIResponse) {
		return nil, err
	}

	// One bounded retry with the stricter reformat instruction; a second
	// malformed response is surfaced, not retried.
	r.logger.WarnContext(ctx, "malformed AI response, retrying with reformat instruction",
		slog.String("file_id", fileID),
		slog.String("error", err.Error()))

	req.Reformat = true
	return r.callAndParse(ctx, req)
}

// callAndParse performs one bounded provider call and schema validation.
func (r *Requester) callAndParse(ctx context.Context, req Request) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.provider.Summarize(callCtx, req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError(err)
	}

	return ParseResponse(raw)
}

// Invalidate drops every cached result for the file. Called when the upload
// is deleted.
func (r *Requester) Invalidate(fileID string) {
	prefix := fileID + "|"

	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cache {
		if strings.HasPrefix(key, prefix) {
			delete(r.cache, key)
		}
	}
}

// Cached returns the cached result for the triple, if any.
func (r *Requester) Cached(fileID string, tt templates.TemplateType, lang templates.Language) *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache[cacheKey(fileID, tt, lang)]
}
