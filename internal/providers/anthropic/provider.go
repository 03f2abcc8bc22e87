package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/adaptivekit/cost-router/internal/providers"
	"github.com/adaptivekit/cost-router/internal/types"
)

// Config holds Anthropic-specific configuration.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Provider implements the Adapter interface for Anthropic Claude models.
type Provider struct {
	name   string
	client *anthropic.Client
	config *Config
	logger *logrus.Logger
}

// New creates a new Anthropic adapter.
func New(name string, config *Config, logger *logrus.Logger) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &Provider{
		name:   name,
		client: &client,
		config: config,
		logger: logger,
	}
}

// Name returns the adapter identifier used by the router.
func (p *Provider) Name() string {
	return p.name
}

// Complete performs a single message call.
func (p *Provider) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (*types.Completion, error) {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(float64(temperature)),
	}

	resp, err := p.client.Messages.New(ctx, req)
	if err != nil {
		p.logger.WithError(err).WithField("provider", p.name).Error("Anthropic API call failed")
		return nil, p.mapError(err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	if content.Len() == 0 {
		return nil, providers.NewCallError(p.name, providers.FailureProviderError,
			fmt.Errorf("anthropic returned no text content"))
	}

	return &types.Completion{
		Content:      content.String(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
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

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return providers.NewCallError(p.name, providers.FailureRateLimited, err)
	}

	return providers.NewCallError(p.name, providers.FailureProviderError, err)
}

var _ providers.Adapter = (*Provider)(nil)
