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

	"github.com/starford/tracker/internal/api"
	"github.com/starford/tracker/internal/mcpserver"
	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/sse"
	"github.com/starford/tracker/internal/storage"
	"github.com/starford/tracker/internal/watcher"
	"github.com/starford/tracker/internal/workspace"
)

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

// setup installs the structured JSON logger and opens the workspace,
// provisioning any missing required directories.
func (a *application) setup(ctx context.Context) (*slog.Logger, *workspace.Service, error) {
	cfg := a.config

	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("project_root", cfg.Workspace.ProjectRoot),
		slog.Bool("watcher_enabled", cfg.Watcher.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	svcOpts := []workspace.Option{workspace.WithLogger(logger)}
	if cfg.Workspace.EntityLocks {
		svcOpts = append(svcOpts, workspace.WithEntityLocks())
	}
	svc := workspace.New(store, svcOpts...)

	if !svc.IsValidWorkspace(ctx) {
		logger.Info("Initializing workspace", slog.String("path", svc.Root()))
		if err := svc.InitializeWorkspace(ctx); err != nil {
			return nil, nil, fmt.Errorf("init workspace: %w", err)
		}
	}
	return logger, svc, nil
}

// Init provisions the workspace layout and returns.
func Init(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger, svc, err := app.setup(ctx)
	if err != nil {
		return err
	}
	logger.Info("Workspace ready", slog.String("path", svc.Root()))
	return nil
}

// ServeMCP runs the MCP server on stdio until the client disconnects.
// Logs must not share stdout with the protocol stream, so they go to
// stderr unless redirected.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger, svc, err := app.setup(ctx)
	if err != nil {
		return err
	}
	logger.Info("MCP server starting", slog.String("workspace_path", svc.Root()))
	return mcpserver.New(svc).ServeStdio()
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, svc, err := app.setup(ctx)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.TreeThrottle)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(svc, models.WorkspaceConfig{
		WorkspacePath: svc.Root(),
		ProjectRoot:   cfg.Workspace.ProjectRoot,
	}, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !svc.IsValidWorkspace(r.Context()) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"workspace unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Start file watcher feeding the SSE broker.
	if cfg.Watcher.Enabled {
		watchers := watcher.NewManager(
			watcher.WithDebounce(cfg.Watcher.Debounce),
			watcher.WithLogger(logger),
			watcher.WithChangeHandler(broker.PublishFileChange),
			watcher.WithErrorHandler(broker.PublishError),
		)
		if _, err := watchers.Watch(gCtx, svc.Root()); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		g.Go(func() error {
			<-gCtx.Done()
			watchers.Close()
			return nil
		})
	}

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

		// Closing the broker ends open event streams so Shutdown can drain.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
