package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"acspop/internal/platform/config"
	"acspop/internal/platform/logger"
	"acspop/internal/platform/postgres"
	"acspop/internal/platform/redis"
	"acspop/internal/population/census"
	"acspop/internal/population/events"
	"acspop/internal/population/metrics"
	"acspop/internal/population/models"
	"acspop/internal/population/service"
	"acspop/internal/population/sink"
)

// store is a sink that can also read back what it published.
type store interface {
	sink.Sink
	sink.Reader
}

// app holds the process-wide dependencies shared by ingest and serve.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	source    census.Source
	resolver  census.Resolver
	store     store
	publisher *events.KafkaPublisher
	redis     *redis.Client
	db        *sql.DB
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a := &app{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		metrics:  metrics.NewWithRegistry(reg),
		source:   census.NewFileSource(cfg.ACS.DataDir),
	}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	md, err := census.LoadMetadataFile(a.cfg.ACS.VariablesFile, models.Groups())
	if err != nil {
		return fmt.Errorf("load variables metadata: %w", err)
	}
	a.resolver = md

	a.redis, err = redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if a.redis != nil {
		a.resolver = census.NewRedisCachedResolver(md, a.redis.Client,
			census.WithCacheNamespace(a.cfg.ACS.Release),
			census.WithCacheTTL(a.cfg.Redis.CacheTTL),
			census.WithCacheLogger(a.logger),
			census.WithCacheMetrics(a.metrics),
		)
		a.logger.Info("variable map cache enabled", "release", a.cfg.ACS.Release)
	}

	switch a.cfg.Sink {
	case config.SinkPostgres:
		a.db, err = postgres.Open(ctx, a.cfg.Database)
		if err != nil {
			return err
		}
		pg := sink.NewPostgresSink(a.db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		a.store = pg
	default:
		a.store = sink.NewMemorySink()
	}

	if len(a.cfg.Kafka.Brokers) > 0 {
		a.publisher, err = events.NewKafkaPublisher(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, events.WithLogger(a.logger))
		if err != nil {
			return err
		}
		if err := a.publisher.EnsureTopic(ctx, a.cfg.Kafka.Partitions, a.cfg.Kafka.ReplicationFactor); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) ingester() (*service.Ingester, error) {
	opts := []service.Option{
		service.WithLogger(a.logger),
		service.WithMetrics(a.metrics),
		service.WithParallelism(a.cfg.Parallelism),
	}
	if a.publisher != nil {
		opts = append(opts, service.WithPublisher(a.publisher))
	}
	return service.New(a.source, a.resolver, a.store, opts...)
}

func (a *app) levels() ([]models.Level, error) {
	levels := make([]models.Level, 0, len(a.cfg.Levels))
	for _, s := range a.cfg.Levels {
		l, err := models.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("closing dependencies", "error", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return logger.New(cfg.Log.Level, cfg.Log.Format)
}
