package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/shapedtime/animeschedule/internal/anilist"
	"github.com/shapedtime/animeschedule/internal/cache"
	"github.com/shapedtime/animeschedule/internal/config"
	"github.com/shapedtime/animeschedule/internal/logging"
	"github.com/shapedtime/animeschedule/internal/metrics"
	"github.com/shapedtime/animeschedule/internal/predict"
	"github.com/shapedtime/animeschedule/internal/seasonsync"
	"github.com/shapedtime/animeschedule/internal/service"
	"github.com/shapedtime/animeschedule/internal/store"
)

// runtime holds the wired application components for one command.
type runtime struct {
	cfg       *config.Config
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	db        *store.DB
	animes    *store.AnimeRepository
	schedules *store.ScheduleRepository
	meta      *store.SyncMetadataRepository
	cache     *cache.Cache
	client    *anilist.Client
	svc       *service.Service

	closers []io.Closer
}

func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	rt := &runtime{cfg: cfg}
	rt.closers = append(rt.closers, logging.Setup(cfg.Logging))

	if err := cfg.EnsureDirectories(); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	rt.registry = prometheus.NewRegistry()
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.metrics = metrics.New(rt.registry)

	rt.db, err = store.NewDB(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	rt.closers = append(rt.closers, rt.db)
	slog.Info("Database initialized", "driver", cfg.Database.Driver)

	rt.animes = store.NewAnimeRepository(rt.db)
	rt.schedules = store.NewScheduleRepository(rt.db)
	rt.meta = store.NewSyncMetadataRepository(rt.db)
	rt.registry.MustRegister(metrics.NewStoreCollector(rt.animes))

	rt.client = anilist.NewClient(
		anilist.WithEndpoint(cfg.AniList.Endpoint),
		anilist.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.AniList.TimeoutSeconds) * time.Second,
		}),
		anilist.WithMinInterval(time.Duration(cfg.AniList.MinRequestIntervalMs)*time.Millisecond),
		anilist.WithMaxPages(cfg.AniList.MaxPages),
		anilist.WithMetrics(rt.metrics),
	)

	opts := []service.Option{
		service.WithStore(rt.animes, rt.schedules),
		service.WithMetrics(rt.metrics),
	}
	if cfg.Cache.Enabled {
		rt.cache, err = cache.Open(cfg.Cache.Dir, time.Duration(cfg.Cache.TTLMinutes)*time.Minute, rt.metrics)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, rt.cache)
		opts = append(opts, service.WithCache(rt.cache))
	}

	predictor := predict.New(predict.WithSource(cfg.Prediction.SourceName))
	rt.svc = service.New(rt.client, predictor, opts...)

	return rt, nil
}

func (rt *runtime) newSeasonSync() *seasonsync.SyncService {
	return seasonsync.NewSyncService(rt.cfg.Sync, rt.client, rt.animes, rt.meta, rt.metrics)
}

// Close releases components in reverse order of creation.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
