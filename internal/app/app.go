package app

import (
	"context"
	"log/slog"
	"time"

	"ProviderDirectory/internal/config"
	"ProviderDirectory/internal/directory"
	"ProviderDirectory/internal/infrastructure/geocode"
	"ProviderDirectory/internal/infrastructure/registry"
	"ProviderDirectory/internal/infrastructure/render"
	"ProviderDirectory/internal/infrastructure/scheduler"
	"ProviderDirectory/internal/infrastructure/snapshot"
	"ProviderDirectory/internal/infrastructure/storage"
	"ProviderDirectory/internal/infrastructure/telegram"
	"ProviderDirectory/internal/logging"
	"ProviderDirectory/internal/ports"
	"ProviderDirectory/internal/rank"
	"ProviderDirectory/internal/territory"
	"ProviderDirectory/internal/usecase"
)

// Application wires configuration to the build pipeline and lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	cache    *geocode.Cache
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Pretty)
	}

	source := registry.NewClient(cfg.Registry, nil, baseLogger.With("component", "registry"))

	cache, err := geocode.LoadCache(cfg.Geocode.CachePath)
	if err != nil {
		baseLogger.Warn("geocode cache unreadable, starting empty", "error", err)
		cache = geocode.NewCache(cfg.Geocode.CachePath)
	}
	geocoder := geocode.New(cfg.Geocode, cache, nil, baseLogger.With("component", "geocode"))

	rule := territory.FromName(cfg.Territory.Rule, cfg.Territory.State, cfg.Territory.ZipPrefixes)

	strategy, err := rank.NewRegistry().Resolve(cfg.Ranking.Mode)
	if err != nil {
		baseLogger.Warn("unknown ranking mode, using classification", "mode", cfg.Ranking.Mode)
		strategy, _ = rank.NewRegistry().Resolve(rank.ModeClassification)
	}

	var repository ports.RunRepository
	if cfg.Database.DSN != "" {
		if db, dbErr := storage.Open(cfg.Database.DSN); dbErr != nil {
			baseLogger.Warn("run history disabled", "error", dbErr)
		} else {
			repository = storage.NewPostgresRepository(db)
		}
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Geocoder:   geocoder,
		Snapshots:  snapshot.NewFileStore(cfg.Snapshot.Path),
		Repository: repository,
		Renderer:   render.NewHTMLWriter(cfg.Output.TemplatePath, cfg.Output.OutputPath),
		Notifier:   notifier,
		Rule:       rule,
		Strategy:   strategy,
		Allowlist:  directory.NewAllowlist(cfg.Registry.Allowlist),
		Privileged: directory.NewAllowlist(cfg.Registry.PrivilegedCodes),
		Cities:     cfg.Registry.Cities,
		Budget:     cfg.Geocode.Budget,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline, cache: cache}
}

// Run executes one build, or keeps building on schedule when the
// scheduler is enabled. The geocode cache is flushed after every build.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if a.cfg.Scheduler.Enabled {
		sched := usecase.NewScheduler(
			scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression),
			a.pipeline,
			func(ctx context.Context) { a.flushCache() },
		)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return sched.Stop(context.Background())
	}

	now := time.Now().In(a.cfg.Scheduler.Location())
	_, err := a.pipeline.BuildDirectory(ctx, now)
	a.flushCache()
	return err
}

func (a *Application) flushCache() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Save(); err != nil {
		a.logger.Warn("geocode cache save failed", "error", err)
	}
}
