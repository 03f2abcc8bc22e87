package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adaptivekit/cost-router/internal/budget"
	"github.com/adaptivekit/cost-router/internal/config"
	"github.com/adaptivekit/cost-router/internal/profile"
	"github.com/adaptivekit/cost-router/internal/providers/anthropic"
	"github.com/adaptivekit/cost-router/internal/providers/gemini"
	"github.com/adaptivekit/cost-router/internal/providers/openai"
	"github.com/adaptivekit/cost-router/internal/routing"
	"github.com/adaptivekit/cost-router/internal/scoring"
	"github.com/adaptivekit/cost-router/internal/server"
	"github.com/adaptivekit/cost-router/internal/telemetry"
)

// Application represents the main application
type Application struct {
	config *config.Config
	router *routing.Router
	server *server.Server
	logger *logrus.Logger
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logrus.New()
	if err := setupLogger(logger, cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	profiles := profile.NewStore(cfg.ToProfiles(), cfg.Scoring.EMAAlpha, time.Now, logger)
	ledger := budget.NewMemoryLedger(time.Now)
	guard := budget.NewGuard(ledger, cfg.Budget, nil, time.Now, logger)
	scorer := scoring.NewScorer(cfg.ToScorerConfig(), profiles)
	policy := scoring.NewPolicy(profiles, cfg.Router.FlagshipProvider, cfg.Router.FreeTierProvider, logger)
	recorder := telemetry.NewRecorder(cfg.Telemetry.BufferCapacity, time.Now)

	routerInstance := routing.NewRouter(profiles, scorer, policy, guard, ledger, recorder, routing.Options{
		RequestTimeout:         cfg.Router.RequestTimeout,
		DefaultMaxOutputTokens: cfg.Router.DefaultMaxOutputTokens,
		DefaultTemperature:     cfg.Router.DefaultTemperature,
	}, time.Now, logger)

	if err := registerAdapters(routerInstance, cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}

	serverInstance := server.NewServer(routerInstance, profiles, guard, recorder, &server.Config{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}, logger)

	return &Application{
		config: cfg,
		router: routerInstance,
		server: serverInstance,
		logger: logger,
	}, nil
}

// Run starts the application
func (app *Application) Run() error {
	app.logger.Info("Starting cost router")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		app.logger.WithField("address", ":"+app.config.Server.Port).Info("HTTP server starting")
		if err := app.server.Start(); err != nil {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		app.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	app.logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		app.logger.WithError(err).Error("Server shutdown error")
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("Graceful shutdown completed")
	return nil
}

// setupLogger configures the logger based on configuration
func setupLogger(logger *logrus.Logger, cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	switch cfg.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
		}
		logger.SetOutput(file)
	}

	return nil
}

// registerAdapters builds one adapter per configured provider that has an API
// key. Providers without keys stay in the profile store but are never called.
func registerAdapters(router *routing.Router, cfg *config.Config, logger *logrus.Logger) error {
	registered := 0

	for _, p := range cfg.EnabledProviders() {
		switch p.Family {
		case config.FamilyOpenAI:
			router.RegisterAdapter(openai.New(p.ID, &openai.Config{
				APIKey:  p.APIKey,
				BaseURL: p.BaseURL,
				Model:   p.Model,
			}, logger))
		case config.FamilyAnthropic:
			router.RegisterAdapter(anthropic.New(p.ID, &anthropic.Config{
				APIKey:  p.APIKey,
				BaseURL: p.BaseURL,
				Model:   p.Model,
			}, logger))
		case config.FamilyGemini:
			adapter, err := gemini.New(p.ID, &gemini.Config{
				APIKey: p.APIKey,
				Model:  p.Model,
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to create gemini adapter %s: %w", p.ID, err)
			}
			router.RegisterAdapter(adapter)
		default:
			return fmt.Errorf("unknown provider family: %s", p.Family)
		}

		logger.WithFields(logrus.Fields{
			"provider": p.ID,
			"family":   p.Family,
			"model":    p.Model,
		}).Info("Provider registered")
		registered++
	}

	if registered == 0 {
		return fmt.Errorf("no providers were registered - check your configuration and API keys")
	}

	logger.WithField("count", registered).Info("Provider registration completed")
	return nil
}

// printUsage prints application usage information
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
	fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY            OpenAI API key\n")
	fmt.Fprintf(os.Stderr, "  ANTHROPIC_API_KEY         Anthropic API key\n")
	fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY            Google Gemini API key\n")
	fmt.Fprintf(os.Stderr, "  COST_ROUTER_PORT          Server port (default: 8080)\n")
	fmt.Fprintf(os.Stderr, "  COST_ROUTER_LOG_LEVEL     Log level (debug,info,warn,error,fatal)\n")
	fmt.Fprintf(os.Stderr, "  COST_ROUTER_LOG_FORMAT    Log format (json,text)\n")
	fmt.Fprintf(os.Stderr, "  COST_ROUTER_DAILY_BUDGET  Daily budget limit in USD\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s --config configs/config.yaml\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY=sk-xxx GEMINI_API_KEY=xxx %s\n", os.Args[0])
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		showHelp   = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	if *version {
		fmt.Printf("Cost Router v1.0.0\n")
		os.Exit(0)
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}
