package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/ai"
	"github.com/spigell/resume-optimizer/internal/ai/gemini"
	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/auth"
	"github.com/spigell/resume-optimizer/internal/credentials"
	"github.com/spigell/resume-optimizer/internal/jobdesc"
	"github.com/spigell/resume-optimizer/internal/logger"
	"github.com/spigell/resume-optimizer/internal/orchestrator"
	"github.com/spigell/resume-optimizer/internal/secrets"
)

var errExit = errors.New("exit requested")

// setup builds the logger and the config every command starts with.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}

func resolveToken(config *Config) (string, error) {
	if config == nil {
		return "", errors.New("config is required")
	}

	tokenFile := strings.TrimSpace(config.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("token-file"))
	}

	return secrets.Load(secrets.Source{
		Name: "bearer token",
		File: tokenFile,
		Env:  "RESUME_OPTIMIZER_TOKEN",
	})
}

// checkToken refuses a token that has already expired. A token the client
// cannot decode is left for the server to judge.
func checkToken(token string, logger *zap.Logger) error {
	info, err := auth.Inspect(token)
	if err != nil {
		logger.Debug("token is not a readable jwt", zap.Error(err))
		return nil
	}

	if info.Expired(time.Now()) {
		return fmt.Errorf("token expired at %s, log in again", info.ExpiresAt.Format(time.RFC3339))
	}

	logger.Debug("token accepted",
		zap.String("user_id", info.UserID),
		zap.Duration("remaining", info.Remaining(time.Now()).Round(time.Second)),
	)

	return nil
}

func httpClient(config *Config) *http.Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func newClient(config *Config, logger *zap.Logger) (*api.Client, error) {
	token, err := resolveToken(config)
	if err != nil {
		return nil, fmt.Errorf("%w (set RESUME_OPTIMIZER_TOKEN_FILE or the 'token-file' key in the configuration file)", err)
	}

	if err := checkToken(token, logger); err != nil {
		return nil, err
	}

	client := api.New(logger, token)
	client.HTTPClient = httpClient(config)

	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}
	if config.Auth.APIURL != "" {
		client.AuthURL = config.Auth.APIURL
	}
	if config.Resume.APIURL != "" {
		client.ResumeURL = config.Resume.APIURL
	}

	return client, nil
}

// newOptimizer returns the backend that runs optimization and feedback rounds:
// the resume processor service, or Gemini called directly.
func newOptimizer(ctx context.Context, config *Config, client *api.Client, logger *zap.Logger) (ai.Assistant, error) {
	backend, err := ai.ParseBackend(config.AI.Backend)
	if err != nil {
		return nil, err
	}
	if backend == ai.Remote {
		return client, nil
	}

	cfg := config.AI.Gemini

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(
		zap.String("model", cfg.Model),
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	fetcher := jobdesc.New(httpClient(config), "", logger)

	return gemini.NewOptimizer(generator, client, fetcher, logger, cfg.Model, cfg.MaxLogLength), nil
}

func newOrchestrator(ctx context.Context, config *Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	client, err := newClient(config, logger)
	if err != nil {
		return nil, err
	}

	optimizer, err := newOptimizer(ctx, config, client, logger)
	if err != nil {
		return nil, fmt.Errorf("building optimizer: %w", err)
	}

	return buildOrchestrator(config, client, optimizer, logger)
}

// newManager returns an orchestrator for the resume and key commands. They
// never optimize, so the AI backend is not built.
func newManager(config *Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	client, err := newClient(config, logger)
	if err != nil {
		return nil, err
	}

	return buildOrchestrator(config, client, client, logger)
}

func buildOrchestrator(config *Config, client *api.Client, optimizer orchestrator.Optimizer, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	return orchestrator.New(orchestrator.Deps{
		Optimizer:   optimizer,
		Resumes:     client,
		Credentials: client,
		Logger:      logger,
	}, orchestrator.Options{
		Model:       credentials.Model(config.Optimize.Model),
		KeepOnePage: config.Optimize.KeepOnePage,
	})
}
