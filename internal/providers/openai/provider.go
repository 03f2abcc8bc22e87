package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/adaptivekit/cost-router/internal/providers"
	"github.com/adaptivekit/cost-router/internal/types"
)

// Config holds OpenAI-specific configuration.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	OrgID   string `yaml:"org_id"`
	Model   string `yaml:"model"`
}

// Provider implements the Adapter interface for OpenAI chat models.
type Provider struct {
	name   string
	client *openai.Client
	config *Config
	logger *logrus.Logger
}

// New creates a new OpenAI adapter.
func New(name string, config *Config, logger *logrus.Logger) *Provider {
	clientConfig := openai.DefaultConfig(config.APIKey)

	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}

	return &Provider{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}
}

// Name returns the adapter identifier used by the router.
func (p *Provider) Name() string {
	return p.name
}

// Complete performs a single chat completion call.
func (p *Provider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (*types.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		p.logger.WithError(err).WithField("provider", p.name).Error("OpenAI API call failed")
		return nil, p.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, providers.NewCallError(p.name, providers.FailureProviderError,
			fmt.Errorf("openai returned no choices"))
	}

	return &types.Completion{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// mapError classifies SDK errors into the router's failure kinds.
func (p *Provider) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewCallError(p.name, providers.FailureTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return providers.NewCallError(p.name, providers.FailureCanceled, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return providers.NewCallError(p.name, providers.FailureRateLimited, err)
	}

	return providers.NewCallError(p.name, providers.FailureProviderError, err)
}

var _ providers.Adapter = (*Provider)(nil)
