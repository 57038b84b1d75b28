package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"reportai/internal/config"
	"reportai/internal/templates"
)

// Request carries one summarize call across the provider boundary. The digest,
// not the raw table, is what crosses it.
type Request struct {
	Digest       string
	TemplateType templates.TemplateType
	Language     templates.Language
	// Reformat is set on the single retry after a malformed response and
	// switches the prompt to the stricter reformatting instruction.
	Reformat bool
}

// Provider is the AI collaborator: digest in, raw narrative text out. Opaque
// beyond timeout and transport-failure signaling.
type Provider interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// OpenAIProvider submits digests to an OpenAI-compatible chat endpoint.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAIProvider builds a provider from configuration. The rate limiter
// bounds quota burn across concurrent requests.
func NewOpenAIProvider(cfg config.AIConfig, logger *slog.Logger) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	rps := cfg.RequestsPerMinute / 60.0
	if rps <= 0 {
		rps = 1
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger.With(slog.String("component", "ai_provider")),
	}
}

// Summarize submits the digest with the template prompt and returns the raw
// model text. All failures here are transport-level; schema validation
// happens in the requester.
func (p *OpenAIProvider) Summarize(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	p.logger.InfoContext(ctx, "submitting digest to AI provider",
		slog.String("template_type", string(req.TemplateType)),
		slog.String("language", string(req.Language)),
		slog.Bool("reformat", req.Reformat),
		slog.Int("digest_bytes", len(req.Digest)))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// MockProvider returns deterministic localized analysis text in the section
// grammar. Selected when no API key is configured, and used throughout tests.
type MockProvider struct{}

// Summarize returns canned five-section text for the requested language.
func (MockProvider) Summarize(_ context.Context, req Request) (string, error) {
	if req.Language == templates.LangFinnish {
		return strings.Join([]string{
			"## EXECUTIVE SUMMARY",
			fmt.Sprintf("Tämä on esimerkkiraportti %s-tyyppiselle analyysille. Mittausdatasta löytyi useita mielenkiintoisia havaintoja.", req.TemplateType),
			"## KEY FINDINGS",
			"- Mittausarvot ovat pääosin odotusten mukaisia",
			"- Havaittu pieni vaihtelu eri mittauspisteissä",
			"- Laadunvalvontarajat täyttyvät kaikissa tapauksissa",
			"## STATISTICAL ANALYSIS",
			"Vaihteluväli on normaali eikä merkittäviä poikkeamia havaittu.",
			"## RECOMMENDATIONS",
			"- Jatka mittauksia nykyisellä metodologialla",
			"- Dokumentoi kaikki poikkeamat",
			"- Tarkista kalibrointi säännöllisesti",
			"## CONCLUSION",
			"Mittaustulokset ovat luotettavia ja vastaavat laadullisia vaatimuksia.",
		}, "\n"), nil
	}

	return strings.Join([]string{
		"## EXECUTIVE SUMMARY",
		fmt.Sprintf("This is a sample report for %s analysis. The measurement data reveals several interesting observations.", req.TemplateType),
		"## KEY FINDINGS",
		"- Measurement values are generally within expected ranges",
		"- Minor variations observed across different measurement points",
		"- All quality control limits are met",
		"## STATISTICAL ANALYSIS",
		"Variation is within normal limits and no significant outliers were detected.",
		"## RECOMMENDATIONS",
		"- Continue measurements with current methodology",
		"- Document all deviations systematically",
		"- Verify calibration on regular basis",
		"## CONCLUSION",
		"The measurement results are reliable and meet quality requirements.",
	}, "\n"), nil
}
