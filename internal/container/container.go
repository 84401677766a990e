package container

import (
	"context"
	"fmt"
	"net/http"

	"go-produce-measure/internal/config"
	"go-produce-measure/internal/observability/metrics"
	"go-produce-measure/internal/retry"
	"go-produce-measure/internal/scoring"
	"go-produce-measure/internal/service"
	"go-produce-measure/internal/transport"
	"go-produce-measure/internal/vision"
	"go-produce-measure/pkg/validation"
)

const serviceName = "measure-api"

// Container holds all application dependencies
type Container struct {
	config             *config.Config
	geminiClient       *vision.GeminiClient
	executor           *retry.Executor
	scorer             *scoring.Scorer
	serverMetrics      *metrics.ServerMetrics
	measurementService service.MeasurementService
	handler            http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	geminiClient, err := vision.NewGeminiClient(ctx, vision.GeminiConfig{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		CallTimeout: cfg.ModelCallTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	executor := retry.NewExecutor(retry.Config{
		MaxAttempts:             cfg.RetryMaxAttempts,
		InitialBackoff:          cfg.RetryInitialBackoff,
		MaxBackoff:              cfg.RetryMaxBackoff,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      cfg.BreakerMinRequests,
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      cfg.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: cfg.BreakerHalfOpenMaxCalls,
	})

	scorer := scoring.NewDefaultScorer()
	serverMetrics := metrics.NewServerMetrics(serviceName)
	validator := validation.NewUploadValidator(cfg.MaxUploadSize)

	measurementService := service.NewMeasurementService(
		serviceName, validator, geminiClient, executor, scorer, serverMetrics)
	handler := transport.NewHandler(measurementService, serverMetrics, cfg)

	return &Container{
		config:             cfg,
		geminiClient:       geminiClient,
		executor:           executor,
		scorer:             scorer,
		serverMetrics:      serverMetrics,
		measurementService: measurementService,
		handler:            handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the upstream model client.
func (c *Container) Close() error {
	if c.geminiClient != nil {
		return c.geminiClient.Close()
	}
	return nil
}
