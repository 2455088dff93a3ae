package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/skilldex/internal/api/handlers"
	"github.com/cloo-solutions/skilldex/internal/api/middleware"
	"github.com/cloo-solutions/skilldex/internal/config"
	"github.com/cloo-solutions/skilldex/internal/jobs"
	"github.com/cloo-solutions/skilldex/internal/mcpserver"
	"github.com/cloo-solutions/skilldex/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and MCP server",
		Long: `Start the skilldex HTTP server. It serves the REST API, Prometheus metrics
and MCP over streamable HTTP at /mcp.

Before listening, the index is rebuilt if the corpus changed since the last build.
Background reindexing runs on REINDEX_INTERVAL, REINDEX_SCHEDULE (cron) or, with WATCH,
on filesystem changes.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides SKILLDEX_PORT)")
	reindexFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer initSentry(cfg)()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	app, err := newApp(ctx, cfg, appOptions{migrate: shouldMigrate(cmd), metrics: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Ensure(ctx, reindexOptions(cmd, cfg)); err != nil {
		return fmt.Errorf("startup reindex failed: %w", err)
	}

	background, err := startBackgroundReindex(ctx, app.Config, app.Lifecycle, app.Source)
	if err != nil {
		return err
	}
	defer background.stop()

	var auth middleware.AuthValidator
	if cfg.AuthEnabled() {
		auth = middleware.NewStaticTokens(cfg.APITokens)
	} else {
		logrus.Warn("SKILLDEX_API_TOKENS is empty, API is unauthenticated")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: auth,
		Metrics:       app.Metrics,
		Ping:          app.Pool.Ping,
		SkillHandler:  handlers.NewSkillHandler(app.Skills),
		IndexHandler:  handlers.NewIndexHandler(app.Lifecycle),
		MCPHandler:    mcpserver.New(app.Skills, Version).Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logrus.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("server exited")
	return nil
}

type backgroundReindex struct {
	stops []func()
}

func (b *backgroundReindex) stop() {
	for _, stop := range b.stops {
		stop()
	}
}

// startBackgroundReindex wires the optional interval worker, cron schedule and file watcher.
// All three share the lifecycle lock, so overlapping triggers serialize. The interval
// worker and the watcher rebuild on change; the cron schedule always rebuilds.
func startBackgroundReindex(ctx context.Context, cfg *config.Config, lifecycle jobs.Ensurer, src any) (*backgroundReindex, error) {
	b := &backgroundReindex{}
	job := jobs.NewReindexJob(lifecycle)

	if cfg.ReindexInterval > 0 {
		worker := jobs.NewWorker(job, cfg.ReindexInterval)
		go worker.Start(ctx)
		b.stops = append(b.stops, worker.Stop)
	}

	if cfg.ReindexSchedule != "" {
		scheduler, err := jobs.NewScheduler(ctx, cfg.ReindexSchedule, jobs.NewForcedReindexJob(lifecycle))
		if err != nil {
			b.stop()
			return nil, err
		}
		scheduler.Start()
		b.stops = append(b.stops, scheduler.Stop)
	}

	if cfg.Watch {
		dirs, ok := src.(jobs.DirLister)
		if !ok {
			logrus.WithField("source", cfg.SkillsSource).Warn("watching is only supported for the fs source")
			return b, nil
		}
		watcher, err := jobs.NewWatcher(dirs, job, 0)
		if err != nil {
			b.stop()
			return nil, fmt.Errorf("failed to start watcher: %w", err)
		}
		go watcher.Start(ctx)
		b.stops = append(b.stops, func() {
			if err := watcher.Close(); err != nil {
				logrus.WithError(err).Warn("failed to close watcher")
			}
		})
	}

	return b, nil
}
