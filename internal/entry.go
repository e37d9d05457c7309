// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/contextwise/internal/api"
	"github.com/starford/contextwise/internal/auth"
	"github.com/starford/contextwise/internal/inference"
	"github.com/starford/contextwise/internal/mcpserver"
	"github.com/starford/contextwise/internal/pipeline"
	"github.com/starford/contextwise/internal/sse"
	"github.com/starford/contextwise/internal/store"
)

// components are the long-lived services shared by the HTTP and MCP entry points.
type components struct {
	db       *store.DB
	auth     *auth.Service
	pipeline *pipeline.Pipeline
	broker   *sse.Broker
}

func (c *components) Close() {
	if c.broker != nil {
		c.broker.Close()
	}
	c.db.Close()
}

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{version: "dev", logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	return app, logger, nil
}

func newSummarizer(cfg InferenceConfig, hf *inference.Client, logger *slog.Logger) inference.Summarizer {
	if cfg.SummaryProvider == ProviderOpenAI {
		return inference.NewOpenAISummarizer(inference.OpenAIConfig{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
		}, logger)
	}
	return hf
}

func buildComponents(cfg *Config, logger *slog.Logger, withBroker bool) (*components, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	authSvc := auth.NewService(db, auth.Config{
		JWTSecret:  cfg.Auth.JWTSecret,
		SessionTTL: cfg.Auth.SessionTTL,
	}, logger)

	if cfg.Inference.APIKey == "" {
		logger.Warn("inference api key is not set; note creation will be refused")
	}
	hf := inference.NewClient(inference.Config{
		BaseURL:      cfg.Inference.BaseURL,
		APIKey:       cfg.Inference.APIKey,
		SummaryModel: cfg.Inference.SummaryModel,
		NERModel:     cfg.Inference.NERModel,
		MaxLength:    cfg.Inference.SummaryMaxLength,
		MinLength:    cfg.Inference.SummaryMinLength,
		Timeout:      cfg.Inference.Timeout,
	}, logger)

	c := &components{db: db, auth: authSvc}
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if withBroker {
		c.broker = sse.NewBroker(2 * time.Second)
		opts = append(opts, pipeline.WithNotifier(c.broker))
	}
	c.pipeline = pipeline.New(newSummarizer(cfg.Inference, hf, logger), hf, db, opts...)
	return c, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("summary_provider", cfg.Inference.SummaryProvider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := buildComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer c.Close()

	handler := api.NewHandler(c.auth, c.pipeline, c.db, c.broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	api.Health(r, c.db.Ping)

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(handler))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Purge expired sessions.
	g.Go(func() error {
		return c.auth.RunJanitor(gCtx, cfg.Auth.PurgeInterval)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Streams block Shutdown until they end, so close them first.
		c.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the janitor stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP signs in as email and serves MCP tools on stdio for that user.
// Logs should be sent to stderr via WithLogOutput since stdout carries the protocol.
func RunMCP(ctx context.Context, email, password string, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}

	c, err := buildComponents(app.config, logger, false)
	if err != nil {
		return err
	}
	defer c.Close()

	token, sess, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("mcp sign in: %w", err)
	}
	defer func() {
		if err := c.auth.SignOut(context.Background(), token); err != nil {
			logger.Warn("mcp sign out failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting", slog.String("user_id", sess.UserID))
	return mcpserver.New(c.pipeline, c.db, sess, app.version).ServeStdio()
}
