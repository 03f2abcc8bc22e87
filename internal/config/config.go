package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adaptivekit/cost-router/internal/budget"
	"github.com/adaptivekit/cost-router/internal/profile"
	"github.com/adaptivekit/cost-router/internal/scoring"
)

// Provider families the router knows how to build adapters for.
const (
	FamilyOpenAI    = "openai"
	FamilyAnthropic = "anthropic"
	FamilyGemini    = "gemini"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Router    RouterConfig     `yaml:"router"`
	Scoring   ScoringConfig    `yaml:"scoring"`
	Budget    budget.Limits    `yaml:"budget"`
	Providers []ProviderConfig `yaml:"providers"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// RouterConfig holds routing engine configuration
type RouterConfig struct {
	RequestTimeout         time.Duration `yaml:"request_timeout"`
	FlagshipProvider       string        `yaml:"flagship_provider"`
	FreeTierProvider       string        `yaml:"free_tier_provider"`
	DefaultMaxOutputTokens int           `yaml:"default_max_output_tokens"`
	DefaultTemperature     float32       `yaml:"default_temperature"`
}

// ScoringConfig holds the candidate scoring parameters
type ScoringConfig struct {
	CostCeiling      float64         `yaml:"cost_ceiling"`
	LatencyCeilingMs float64         `yaml:"latency_ceiling_ms"`
	EMAAlpha         float64         `yaml:"ema_alpha"`
	DefaultWeights   scoring.Weights `yaml:"default_weights"`
	QualityWeights   scoring.Weights `yaml:"quality_weights"`
}

// ProviderConfig describes one routable provider
type ProviderConfig struct {
	ID                   string  `yaml:"id"`
	Family               string  `yaml:"family"`
	Model                string  `yaml:"model"`
	APIKey               string  `yaml:"api_key"`
	BaseURL              string  `yaml:"base_url"`
	CostPerMInputTokens  float64 `yaml:"cost_per_m_input_tokens"`
	CostPerMOutputTokens float64 `yaml:"cost_per_m_output_tokens"`
	FreeTierDailyQuota   int     `yaml:"free_tier_daily_quota"`
	QualityScore         float64 `yaml:"quality_score"`
	BaseLatencyMs        float64 `yaml:"base_latency_ms"`
	InitialReliability   float64 `yaml:"initial_reliability"`
}

// TelemetryConfig holds telemetry buffer configuration
type TelemetryConfig struct {
	BufferCapacity int `yaml:"buffer_capacity"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout", "stderr", or file path
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	// Set defaults
	config.setDefaults()

	// Load from file if provided
	if configPath != "" {
		if err := config.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() {
	c.Server = ServerConfig{
		Port:           "8080",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	c.Router = RouterConfig{
		RequestTimeout:         30 * time.Second,
		FlagshipProvider:       "anthropic-sonnet",
		FreeTierProvider:       "gemini-flash",
		DefaultMaxOutputTokens: 1024,
		DefaultTemperature:     0.7,
	}

	c.Scoring = ScoringConfig{
		CostCeiling:      0.10,
		LatencyCeilingMs: 10000,
		EMAAlpha:         0.2,
		DefaultWeights: scoring.Weights{
			Cost:        0.4,
			Speed:       0.3,
			Quality:     0.2,
			Reliability: 0.1,
		},
		QualityWeights: scoring.Weights{
			Quality:     0.4,
			Reliability: 0.3,
			Cost:        0.2,
			Speed:       0.1,
		},
	}

	c.Budget = budget.Limits{
		DailyLimit:     10.0,
		MonthlyLimit:   200.0,
		AlertThreshold: 0.8,
		HardStop:       true,
	}

	c.Providers = []ProviderConfig{
		{
			ID:                   "openai-mini",
			Family:               FamilyOpenAI,
			Model:                "gpt-4o-mini",
			CostPerMInputTokens:  0.15,
			CostPerMOutputTokens: 0.60,
			QualityScore:         75,
			BaseLatencyMs:        900,
			InitialReliability:   90,
		},
		{
			ID:                   "anthropic-sonnet",
			Family:               FamilyAnthropic,
			Model:                "claude-sonnet-4-20250514",
			CostPerMInputTokens:  3.00,
			CostPerMOutputTokens: 15.00,
			QualityScore:         95,
			BaseLatencyMs:        1600,
			InitialReliability:   90,
		},
		{
			ID:                   "gemini-flash",
			Family:               FamilyGemini,
			Model:                "gemini-2.0-flash",
			CostPerMInputTokens:  0.10,
			CostPerMOutputTokens: 0.40,
			FreeTierDailyQuota:   1500,
			QualityScore:         70,
			BaseLatencyMs:        700,
			InitialReliability:   90,
		},
	}

	c.Telemetry = TelemetryConfig{
		BufferCapacity: 1000,
	}

	c.Logging = LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// loadFromFile loads configuration from YAML file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("COST_ROUTER_PORT"); port != "" {
		c.Server.Port = port
	}

	// Provider API keys by family
	keys := map[string]string{
		FamilyOpenAI:    os.Getenv("OPENAI_API_KEY"),
		FamilyAnthropic: os.Getenv("ANTHROPIC_API_KEY"),
		FamilyGemini:    os.Getenv("GEMINI_API_KEY"),
	}
	for i := range c.Providers {
		if key := keys[c.Providers[i].Family]; key != "" {
			c.Providers[i].APIKey = key
		}
	}

	if level := os.Getenv("COST_ROUTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if format := os.Getenv("COST_ROUTER_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}

	if limit := os.Getenv("COST_ROUTER_DAILY_BUDGET"); limit != "" {
		if v, err := strconv.ParseFloat(limit, 64); err == nil && v > 0 {
			c.Budget.DailyLimit = v
		}
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Router.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Router.DefaultMaxOutputTokens <= 0 {
		return fmt.Errorf("default max output tokens must be positive")
	}

	if c.Scoring.CostCeiling <= 0 {
		return fmt.Errorf("cost ceiling must be positive")
	}
	if c.Scoring.LatencyCeilingMs <= 0 {
		return fmt.Errorf("latency ceiling must be positive")
	}
	if c.Scoring.EMAAlpha <= 0 || c.Scoring.EMAAlpha > 1 {
		return fmt.Errorf("ema alpha must be in (0, 1], got %v", c.Scoring.EMAAlpha)
	}
	if err := validateWeights("default_weights", c.Scoring.DefaultWeights); err != nil {
		return err
	}
	if err := validateWeights("quality_weights", c.Scoring.QualityWeights); err != nil {
		return err
	}

	if c.Budget.DailyLimit <= 0 {
		return fmt.Errorf("daily budget limit must be positive")
	}
	if c.Budget.AlertThreshold <= 0 || c.Budget.AlertThreshold > 1 {
		return fmt.Errorf("alert threshold must be in (0, 1], got %v", c.Budget.AlertThreshold)
	}

	if c.Telemetry.BufferCapacity <= 0 {
		return fmt.Errorf("telemetry buffer capacity must be positive")
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	validFamilies := map[string]bool{
		FamilyOpenAI:    true,
		FamilyAnthropic: true,
		FamilyGemini:    true,
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider id cannot be empty")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id: %s", p.ID)
		}
		seen[p.ID] = true

		if !validFamilies[p.Family] {
			return fmt.Errorf("provider %s has invalid family: %s", p.ID, p.Family)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %s must specify a model", p.ID)
		}
		if p.CostPerMInputTokens < 0 || p.CostPerMOutputTokens < 0 {
			return fmt.Errorf("provider %s has negative cost rates", p.ID)
		}
		if p.QualityScore < 0 || p.QualityScore > 100 {
			return fmt.Errorf("provider %s quality score must be in [0, 100], got %v", p.ID, p.QualityScore)
		}
		if p.InitialReliability < 0 || p.InitialReliability > 100 {
			return fmt.Errorf("provider %s initial reliability must be in [0, 100], got %v", p.ID, p.InitialReliability)
		}
	}

	if c.Router.FlagshipProvider != "" && !seen[c.Router.FlagshipProvider] {
		return fmt.Errorf("flagship provider %s is not configured", c.Router.FlagshipProvider)
	}
	if c.Router.FreeTierProvider != "" && !seen[c.Router.FreeTierProvider] {
		return fmt.Errorf("free-tier provider %s is not configured", c.Router.FreeTierProvider)
	}

	return nil
}

func validateWeights(name string, w scoring.Weights) error {
	if w.Cost < 0 || w.Speed < 0 || w.Quality < 0 || w.Reliability < 0 {
		return fmt.Errorf("%s must be non-negative", name)
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("%s must sum to 1.0, got %v", name, w.Sum())
	}
	return nil
}

// ToProfiles builds the initial provider profiles from the static
// configuration.
func (c *Config) ToProfiles() []profile.Profile {
	profiles := make([]profile.Profile, 0, len(c.Providers))
	for _, p := range c.Providers {
		reliability := p.InitialReliability
		if reliability == 0 {
			reliability = 90
		}
		profiles = append(profiles, profile.Profile{
			ID:                   p.ID,
			Family:               p.Family,
			Model:                p.Model,
			CostPerMInputTokens:  p.CostPerMInputTokens,
			CostPerMOutputTokens: p.CostPerMOutputTokens,
			FreeTierDailyQuota:   p.FreeTierDailyQuota,
			AvgLatencyMs:         p.BaseLatencyMs,
			QualityScore:         p.QualityScore,
			ReliabilityScore:     reliability,
		})
	}
	return profiles
}

// ToScorerConfig converts to scoring.ScorerConfig
func (c *Config) ToScorerConfig() scoring.ScorerConfig {
	return scoring.ScorerConfig{
		CostCeiling:            c.Scoring.CostCeiling,
		LatencyCeilingMs:       c.Scoring.LatencyCeilingMs,
		DefaultMaxOutputTokens: c.Router.DefaultMaxOutputTokens,
		DefaultWeights:         c.Scoring.DefaultWeights,
		QualityWeights:         c.Scoring.QualityWeights,
	}
}

// SaveToFile saves the current configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EnabledProviders returns the configured providers that have an API key and
// can therefore be registered as adapters.
func (c *Config) EnabledProviders() []ProviderConfig {
	enabled := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.APIKey != "" {
			enabled = append(enabled, p)
		}
	}
	return enabled
}
