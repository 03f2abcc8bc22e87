package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/adaptivekit/cost-router/internal/providers"
	"github.com/adaptivekit/cost-router/internal/types"
)

// Config holds Gemini-specific configuration.
type Config struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Provider implements the Adapter interface for Google Gemini models.
type Provider struct {
	name   string
	client *genai.Client
	config *Config
	logger *logrus.Logger
}

// New creates a new Gemini adapter.
func New(name string, config *Config, logger *logrus.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Provider{
		name:   name,
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Name returns the adapter identifier used by the router.
func (p *Provider) Name() string {
	return p.name
}

// Complete performs a single content generation call.
func (p *Provider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (*types.Completion, error) {
	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Temperature:     genai.Ptr(temperature),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, genai.Text(prompt), genConfig)
	if err != nil {
		p.logger.WithError(err).WithField("provider", p.name).Error("Gemini API call failed")
		return nil, p.mapError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, providers.NewCallError(p.name, providers.FailureProviderError,
			fmt.Errorf("gemini returned no candidates"))
	}

	var content strings.Builder
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content.WriteString(part.Text)
			}
		}
	}

	completion := &types.Completion{Content: content.String()}
	if resp.UsageMetadata != nil {
		completion.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		completion.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return completion, nil
}

// mapError classifies SDK errors into the router's failure kinds.
func (p *Provider) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewCallError(p.name, providers.FailureTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return providers.NewCallError(p.name, providers.FailureCanceled, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return providers.NewCallError(p.name, providers.FailureRateLimited, err)
	}

	return providers.NewCallError(p.name, providers.FailureProviderError, err)
}

var _ providers.Adapter = (*Provider)(nil)
