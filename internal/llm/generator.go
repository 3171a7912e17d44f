// Package llm is the single seam to the external language-generation
// provider. Callers supply the credential per call; key selection and
// quota tracking live in the key pool, not here.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator abstracts text generation for the orchestrator and the
// confirmation detector's model tier.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, cred models.Credential) (string, error)
}

// ProviderClient generates text through an OpenAI-compatible endpoint
// via langchaingo, constructing the client per call from the supplied
// credential.
type ProviderClient struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewProviderClient creates a provider client. baseURL may be empty for
// the provider's default endpoint; timeout bounds every call.
func NewProviderClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ProviderClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ProviderClient{baseURL: baseURL, timeout: timeout, logger: logger}
}

// Generate runs a system+user prompt against the model the credential
// carries. Failures come back wrapped with the matching sentinel from
// errors.go so callers can branch on kind with errors.Is.
func (p *ProviderClient) Generate(ctx context.Context, systemPrompt, userPrompt string, cred models.Credential) (string, error) {
	opts := []openai.Option{
		openai.WithToken(cred.Secret),
		openai.WithModel(cred.Model()),
	}
	if p.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(p.baseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return "", fmt.Errorf("create provider client: %w", wrapProviderError(err))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := model.GenerateContent(ctx, messages)
	if err != nil {
		wrapped := wrapProviderError(err)
		p.logger.Warn("provider call failed",
			"model", cred.Model(),
			"kind", string(Classify(wrapped)),
			"elapsed", time.Since(start),
			"error", err)
		return "", fmt.Errorf("generate: %w", wrapped)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generate: %w: no response choices", ErrTransient)
	}

	p.logger.Debug("provider call succeeded", "model", cred.Model(), "elapsed", time.Since(start))
	return response.Choices[0].Content, nil
}
