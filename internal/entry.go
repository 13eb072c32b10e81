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

	"github.com/starford/smartblock/internal/ai"
	"github.com/starford/smartblock/internal/api"
	"github.com/starford/smartblock/internal/blocks"
	"github.com/starford/smartblock/internal/blockservice"
	"github.com/starford/smartblock/internal/events"
	"github.com/starford/smartblock/internal/index"
	"github.com/starford/smartblock/internal/mcpserver"
	"github.com/starford/smartblock/internal/metrics"
	"github.com/starford/smartblock/internal/reorder"
	"github.com/starford/smartblock/internal/sidecar"
	"github.com/starford/smartblock/internal/sse"
	"github.com/starford/smartblock/internal/storage"
)

// components is everything both the HTTP and MCP front ends run on.
type components struct {
	db      *index.DB
	indexer *index.Indexer
	bus     *events.Bus
	metrics *metrics.Metrics
	svc     *blockservice.Service
}

func (c *components) Close() error {
	return c.db.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// build opens the vault and index and assembles the block service.
func (a *application) build(logger *slog.Logger) (*components, error) {
	cfg := a.config

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	// Sidecar files live inside the vault but are not documents.
	store, err := storage.NewFS(cfg.Vault.Path, cfg.Blocks.SidecarDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	m := metrics.New()
	bus := events.NewBus(
		events.WithLogger(logger),
		events.WithObserver(func(e events.Event) { m.Event(string(e.Type)) }),
	)

	engine := blocks.New(append(cfg.Blocks.EngineOptions(), blocks.WithLogger(logger))...)
	indexer := index.NewIndexer(db, store, engine, logger, m)

	if !a.skipSync {
		if err := indexer.Sync(); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	meta := sidecar.NewStore(
		sidecar.NewVaultPersister(store, cfg.Blocks.SidecarDir),
		sidecar.WithLogger(logger),
	)

	svcOpts := []blockservice.Option{
		blockservice.WithBus(bus),
		blockservice.WithMetrics(m),
		blockservice.WithLogger(logger),
		blockservice.WithExtractDir(cfg.Blocks.ExtractDir),
	}
	if cfg.AI.Enabled() {
		model := ai.NewOpenAI(ai.OpenAIConfig{
			APIKey:            cfg.AI.APIKey,
			BaseURL:           cfg.AI.BaseURL,
			Model:             cfg.AI.Model,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
			SummaryLength:     cfg.AI.SummaryLength,
		}, logger)
		svcOpts = append(svcOpts,
			blockservice.WithSummarizer(model),
			blockservice.WithAdvisor(reorder.NewAdvisor(model.Score)),
		)
		logger.Info("AI provider enabled", slog.String("model", cfg.AI.Model))
	} else {
		svcOpts = append(svcOpts, blockservice.WithSummarizer(ai.Truncate{MaxRunes: cfg.AI.SummaryLength}))
	}

	return &components{
		db:      db,
		indexer: indexer,
		bus:     bus,
		metrics: m,
		svc:     blockservice.New(store, engine, db, indexer, meta, svcOpts...),
	}, nil
}

// Run starts the HTTP server, the vault watcher and the SSE broker.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.String("ai_provider", cfg.AI.Provider))

	c, err := app.build(logger)
	if err != nil {
		return err
	}
	defer c.Close()

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	c.bus.SubscribeAll(broker.Forward)

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := c.db.CountBlocks(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", c.metrics.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := c.indexer.Watch(gCtx, cfg.Vault.Path, broker.PublishDocumentEvent); err != nil {
			logger.Error("vault watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// Stops the watcher.
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	slog.SetDefault(logger)

	c, err := app.build(logger)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("vault_path", app.config.Vault.Path))
	return mcpserver.New(c.svc).ServeStdio()
}
