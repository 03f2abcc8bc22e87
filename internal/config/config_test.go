package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"COST_ROUTER_PORT", "COST_ROUTER_LOG_LEVEL", "COST_ROUTER_LOG_FORMAT",
		"COST_ROUTER_DAILY_BUDGET", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Router.RequestTimeout)
	assert.Equal(t, "anthropic-sonnet", cfg.Router.FlagshipProvider)
	assert.Equal(t, "gemini-flash", cfg.Router.FreeTierProvider)
	assert.Equal(t, 1024, cfg.Router.DefaultMaxOutputTokens)

	assert.InDelta(t, 0.2, cfg.Scoring.EMAAlpha, 1e-9)
	assert.InDelta(t, 1.0, cfg.Scoring.DefaultWeights.Sum(), 1e-9)
	assert.InDelta(t, 1.0, cfg.Scoring.QualityWeights.Sum(), 1e-9)
	assert.InDelta(t, 0.4, cfg.Scoring.DefaultWeights.Cost, 1e-9)
	assert.InDelta(t, 0.4, cfg.Scoring.QualityWeights.Quality, 1e-9)

	assert.InDelta(t, 10.0, cfg.Budget.DailyLimit, 1e-9)
	assert.InDelta(t, 0.8, cfg.Budget.AlertThreshold, 1e-9)
	assert.True(t, cfg.Budget.HardStop)

	require.Len(t, cfg.Providers, 3)
	assert.Equal(t, 1000, cfg.Telemetry.BufferCapacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigFromFile(t *testing.T) {
	content := `
server:
  port: "9090"
budget:
  daily_limit: 25.5
  alert_threshold: 0.5
  hard_stop: false
router:
  flagship_provider: premium
  free_tier_provider: ""
providers:
  - id: premium
    family: anthropic
    model: claude-sonnet-4-20250514
    api_key: test-key
    cost_per_m_input_tokens: 3.0
    cost_per_m_output_tokens: 15.0
    quality_score: 95
    base_latency_ms: 1500
    initial_reliability: 92
`
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.InDelta(t, 25.5, cfg.Budget.DailyLimit, 1e-9)
	assert.InDelta(t, 0.5, cfg.Budget.AlertThreshold, 1e-9)
	assert.False(t, cfg.Budget.HardStop)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "premium", cfg.Providers[0].ID)
	assert.Equal(t, FamilyAnthropic, cfg.Providers[0].Family)
	assert.InDelta(t, 92.0, cfg.Providers[0].InitialReliability, 1e-9)
	assert.Equal(t, "premium", cfg.Router.FlagshipProvider)
	assert.Empty(t, cfg.Router.FreeTierProvider)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("COST_ROUTER_PORT", "7070")
	t.Setenv("COST_ROUTER_LOG_LEVEL", "debug")
	t.Setenv("COST_ROUTER_DAILY_BUDGET", "42.5")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.InDelta(t, 42.5, cfg.Budget.DailyLimit, 1e-9)

	enabled := cfg.EnabledProviders()
	require.Len(t, enabled, 1)
	assert.Equal(t, FamilyOpenAI, enabled[0].Family)
	assert.Equal(t, "sk-test", enabled[0].APIKey)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "weights must sum to one",
			mutate:  func(c *Config) { c.Scoring.DefaultWeights.Cost = 0.9 },
			wantErr: "must sum to 1.0",
		},
		{
			name:    "alpha out of range",
			mutate:  func(c *Config) { c.Scoring.EMAAlpha = 1.5 },
			wantErr: "ema alpha",
		},
		{
			name:    "zero cost ceiling",
			mutate:  func(c *Config) { c.Scoring.CostCeiling = 0 },
			wantErr: "cost ceiling",
		},
		{
			name:    "negative daily limit",
			mutate:  func(c *Config) { c.Budget.DailyLimit = -1 },
			wantErr: "daily budget",
		},
		{
			name:    "alert threshold out of range",
			mutate:  func(c *Config) { c.Budget.AlertThreshold = 1.2 },
			wantErr: "alert threshold",
		},
		{
			name:    "no providers",
			mutate:  func(c *Config) { c.Providers = nil },
			wantErr: "at least one provider",
		},
		{
			name: "duplicate provider id",
			mutate: func(c *Config) {
				c.Providers = append(c.Providers, c.Providers[0])
			},
			wantErr: "duplicate provider id",
		},
		{
			name:    "invalid family",
			mutate:  func(c *Config) { c.Providers[0].Family = "cohere" },
			wantErr: "invalid family",
		},
		{
			name:    "unknown flagship",
			mutate:  func(c *Config) { c.Router.FlagshipProvider = "missing" },
			wantErr: "flagship provider",
		},
		{
			name:    "unknown free tier",
			mutate:  func(c *Config) { c.Router.FreeTierProvider = "missing" },
			wantErr: "free-tier provider",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "zero telemetry capacity",
			mutate:  func(c *Config) { c.Telemetry.BufferCapacity = 0 },
			wantErr: "telemetry buffer",
		},
		{
			name:    "quality score out of range",
			mutate:  func(c *Config) { c.Providers[0].QualityScore = 150 },
			wantErr: "quality score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.setDefaults()
			tt.mutate(cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToProfiles(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()

	profiles := cfg.ToProfiles()
	require.Len(t, profiles, 3)

	assert.Equal(t, "openai-mini", profiles[0].ID)
	assert.Equal(t, FamilyOpenAI, profiles[0].Family)
	assert.InDelta(t, 0.15, profiles[0].CostPerMInputTokens, 1e-9)
	assert.InDelta(t, 900.0, profiles[0].AvgLatencyMs, 1e-9)
	assert.InDelta(t, 90.0, profiles[0].ReliabilityScore, 1e-9)

	assert.Equal(t, 1500, profiles[2].FreeTierDailyQuota)
}

func TestToProfilesDefaultsReliability(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()
	cfg.Providers[0].InitialReliability = 0

	profiles := cfg.ToProfiles()
	assert.InDelta(t, 90.0, profiles[0].ReliabilityScore, 1e-9)
}

func TestSaveAndReloadConfig(t *testing.T) {
	clearEnv(t)

	cfg := &Config{}
	cfg.setDefaults()
	cfg.Server.Port = "6060"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "6060", reloaded.Server.Port)
	assert.InDelta(t, cfg.Budget.DailyLimit, reloaded.Budget.DailyLimit, 1e-9)
}
