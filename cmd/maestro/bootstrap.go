package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/maestro/internal/api"
	"github.com/ShayCichocki/maestro/internal/config"
	"github.com/ShayCichocki/maestro/internal/orchestrator"
	"github.com/ShayCichocki/maestro/internal/telemetry"
)

// app bundles everything a command needs and the teardown for it.
type app struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	logger   *orchestrator.DebugLogger
	shutdown telemetry.Shutdown
}

func (r *app) Close() {
	r.orch.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.shutdown(ctx); err != nil {
		r.logger.Logger().Warn("telemetry shutdown failed", "error", err)
	}
	_ = r.logger.Close()
}

// loadConfig loads configuration for the --project directory.
func loadConfig() (*config.Config, error) {
	dir := projectDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		dir = cwd
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// openLogger opens the configured log file, falling back to the project log
// directory when the project has been initialized.
func openLogger(cfg *config.Config) (*orchestrator.DebugLogger, error) {
	level := orchestrator.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		path := cfg.Logging.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.ProjectRoot, path)
		}
		return orchestrator.NewDebugLogger(path, level)
	}
	if _, err := os.Stat(filepath.Join(cfg.ProjectRoot, ".maestro")); err == nil {
		return orchestrator.NewDebugLoggerForProject(cfg.ProjectRoot, level), nil
	}
	return orchestrator.NopLogger(), nil
}

// createCompleter builds the Anthropic client for prompt-backed agents.
// Returns nil when no credentials are configured.
func createCompleter(cfg *config.Config) (api.Completer, error) {
	if !config.HasCompletionBackend(cfg) {
		return nil, nil
	}
	key, _ := config.GetAPIKey(cfg)
	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		MaxTokens:     cfg.Anthropic.MaxTokens,
		APIKey:        key,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		BaseURL:       cfg.Anthropic.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}
	return client, nil
}

// orchestratorConfig maps loaded configuration onto the orchestrator's.
func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		ProjectRoot:             cfg.ProjectRoot,
		AgentsDir:               cfg.AgentsDir,
		WorkflowsDir:            cfg.WorkflowsDir,
		MaxInFlight:             cfg.Concurrency.MaxInFlight,
		StepTimeout:             cfg.Timeouts.Step,
		HistorySize:             cfg.History.Size,
		CancelInFlightOnFailure: cfg.Scheduler.CancelInFlightOnFailure,
	}
}

// bootstrap loads configuration and returns an initialized orchestrator.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := openLogger(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.Logger()

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry.OTLPEndpoint, "maestro", Version(), cfg.Telemetry.Insecure)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithInstruments(telemetry.NewInstruments()),
	}
	completer, err := createCompleter(cfg)
	if err != nil {
		log.Warn("prompt agents disabled", "error", err)
	} else if completer != nil {
		opts = append(opts, orchestrator.WithCompleter(completer))
	}

	orch := orchestrator.New(orchestratorConfig(cfg), opts...)
	rt := &app{cfg: cfg, orch: orch, logger: logger, shutdown: shutdown}
	if err := orch.Initialize(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
