// Package app wires configuration to components and owns the process
// lifecycle: the cron scheduler, the debug HTTP server, and shutdown.
package app

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

	"github.com/gin-gonic/gin"

	"github.com/cf-vnkr/autoblog/internal/config"
	"github.com/cf-vnkr/autoblog/internal/infrastructure/feed"
	ghpub "github.com/cf-vnkr/autoblog/internal/infrastructure/github"
	"github.com/cf-vnkr/autoblog/internal/infrastructure/httpapi"
	"github.com/cf-vnkr/autoblog/internal/infrastructure/ledger"
	"github.com/cf-vnkr/autoblog/internal/infrastructure/llm"
	"github.com/cf-vnkr/autoblog/internal/infrastructure/scheduler"
	"github.com/cf-vnkr/autoblog/internal/logging"
	"github.com/cf-vnkr/autoblog/internal/ports"
	"github.com/cf-vnkr/autoblog/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application holds the wired components for one worker process.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	runner *usecase.Scheduler
	engine *gin.Engine
	store  *ledger.Store
}

// New builds a runnable application instance. The ledger is optional: if it
// cannot be opened the worker starts in degraded mode without dedup.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	source := feed.NewFetcher(cfg.Feed.URL, nil, baseLogger.With("component", "feed"))

	var (
		store *ledger.Store
		led   ports.Ledger
	)
	if cfg.Ledger.Path != "" {
		opened, err := ledger.Open(cfg.Ledger.Path, cfg.Ledger.TTL(), baseLogger.With("component", "ledger"))
		if err != nil {
			baseLogger.Warn("ledger unavailable, dedup disabled", "path", cfg.Ledger.Path, "error", err)
		} else {
			store = opened
			led = opened
		}
	} else {
		baseLogger.Warn("no ledger path configured, dedup disabled")
	}

	summarizer := llm.NewSummarizer(cfg.Summarizer, baseLogger.With("component", "summarizer"))
	publisher := ghpub.NewPublisher(cfg.GitHub, nil, baseLogger.With("component", "publisher"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Ledger:     led,
		Summarizer: summarizer,
		Publisher:  publisher,
		MaxItems:   cfg.Feed.MaxItemsPerRun,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler"))
	runner := usecase.NewScheduler(driver, pipeline)

	gin.SetMode(ginMode(cfg.Server.Mode))
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		Config:     cfg,
		Pipeline:   pipeline,
		Source:     source,
		Ledger:     led,
		Summarizer: summarizer,
		Publisher:  publisher,
		Scheduler:  driver,
	})
	handler.RegisterRoutes(engine)

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		runner: runner,
		engine: engine,
		store:  store,
	}, nil
}

// Run starts the scheduler and the debug HTTP server, then blocks until the
// context is canceled or a termination signal arrives.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:    a.cfg.Address(),
		Handler: a.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("debug server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.shutdown(context.Background(), nil)
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.shutdown(shutdownCtx, srv)
	return nil
}

func (a *Application) shutdown(ctx context.Context, srv *http.Server) {
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Warn("http server shutdown", "error", err)
		}
	}
	if err := a.runner.Stop(ctx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("ledger close", "error", err)
		}
	}
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
