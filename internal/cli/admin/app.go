package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/skilldex/internal/config"
	"github.com/cloo-solutions/skilldex/internal/database"
	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/embedding"
	"github.com/cloo-solutions/skilldex/internal/logging"
	"github.com/cloo-solutions/skilldex/internal/repository"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/cloo-solutions/skilldex/internal/source"
	"github.com/cloo-solutions/skilldex/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is stamped by main.
var Version = "dev"

// skillSource is what the daemon needs from a corpus backend.
type skillSource interface {
	service.SkillSourceInterface
}

// App is the wired daemon: one corpus, one index, one lifecycle.
type App struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Metrics   *telemetry.Metrics
	Source    skillSource
	Index     *repository.SkillIndexRepository
	Lifecycle *service.IndexLifecycle
	Skills    *service.SkillService

	closers []func()
}

type appOptions struct {
	migrate bool
	metrics bool
}

// loadConfig loads and validates configuration, then configures logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initSentry starts error reporting when SENTRY_DSN is set. The returned func flushes events.
func initSentry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logrus.WithError(err).Warn("telemetry init failed, continuing without tracing")
		return func() {}
	}
	return shutdown
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (app *App, err error) {
	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if opts.metrics {
		app.Metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	}

	if opts.migrate {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	app.Pool, err = database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.Pool.Close)
	logrus.Debug("connected to database")

	app.Source, err = newSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := embedding.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queryEmbedder, closeCache, err := embedding.NewQueryEmbedder(ctx, cfg, provider, app.Metrics)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeCache)

	// A nil Provider must reach the indexer as a nil interface.
	var indexEmbedder service.EmbeddingClient
	if provider != nil {
		indexEmbedder = provider
	}

	app.Index = repository.NewSkillIndexRepository(app.Pool, app.Source.Root())
	stateRepo := repository.NewIndexStateRepository(app.Pool)

	indexer := service.NewIndexer(app.Source, app.Index, indexEmbedder, cfg.EmbedConcurrency, app.Metrics)
	detector := service.NewStalenessDetector(stateRepo, app.Source, embedding.ProviderID(provider))
	app.Lifecycle = service.NewIndexLifecycle(detector, indexer, app.Index)

	policy := service.EnablementPolicy{
		SkillIDs:   cfg.EnabledSkills,
		Categories: cfg.EnabledCategories,
	}
	search := service.NewSearchEngine(app.Index, queryEmbedder, policy, service.SearchConfig{
		DefaultLimit: cfg.SearchLimit,
		Threshold:    cfg.SearchThreshold,
	}, app.Metrics)
	app.Skills = service.NewSkillService(app.Index, app.Source, search, policy, cfg.MaxFileBytes)

	logrus.WithFields(logrus.Fields{
		"corpus_root": app.Source.Root(),
		"source":      cfg.SkillsSource,
		"embedding":   cfg.EmbeddingProvider,
	}).Info("skilldex initialized")

	return app, nil
}

func newSource(ctx context.Context, cfg *config.Config) (skillSource, error) {
	switch cfg.SkillsSource {
	case config.SourceS3:
		s3Source, err := source.NewS3Source(ctx, source.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		if err := s3Source.CheckBucket(ctx); err != nil {
			logrus.WithError(err).Warn("skills bucket check failed")
		}
		return s3Source, nil
	default:
		fsSource, err := source.NewFSSource(cfg.SkillsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open skills dir: %w", err)
		}
		return fsSource, nil
	}
}

// Ensure runs the startup reindex check. An empty corpus is logged, not fatal,
// so a daemon can come up before skills are published.
func (a *App) Ensure(ctx context.Context, opts service.ReindexOptions) (*service.EnsureResult, error) {
	result, err := a.Lifecycle.Ensure(ctx, opts)
	if errors.Is(err, domain.ErrEmptyCorpus) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// reindexFlags registers --reindex and --skip-auto-reindex on cmd.
func reindexFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("reindex", false, "Force a full index rebuild on startup")
	cmd.Flags().Bool("skip-auto-reindex", false, "Skip the automatic staleness check on startup (env SKILLDEX_SKIP_AUTO_REINDEX)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
}

func reindexOptions(cmd *cobra.Command, cfg *config.Config) service.ReindexOptions {
	force, _ := cmd.Flags().GetBool("reindex")
	skip, _ := cmd.Flags().GetBool("skip-auto-reindex")
	return service.ReindexOptions{
		Force:    force,
		SkipAuto: skip || cfg.SkipAutoReindex,
	}
}

func shouldMigrate(cmd *cobra.Command) bool {
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	return !noMigrate
}
