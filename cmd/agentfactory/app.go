package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/factory"
	"github.com/hupe1980/agentfactory/internal/metrics"
	"github.com/hupe1980/agentfactory/internal/telemetry"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/model"
	"github.com/hupe1980/agentfactory/store"
	"github.com/hupe1980/agentfactory/tool"
	"github.com/hupe1980/agentfactory/tool/provider"
	"github.com/hupe1980/agentfactory/trace"
)

// app holds the process wide components built from the config.
type app struct {
	env      *factory.Environment
	tools    *tool.Registry
	registry *prometheus.Registry
	metrics  *metrics.Collector
	store    store.Store

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	a := &app{}

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:  cfg.Tracer.Enabled || cfg.TraceSink.OTel,
		Exporter: cfg.Tracer.Exporter,
	})
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector("agentfactory", a.registry)

	sink, err := a.traceSink(cfg.TraceSink, logger)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.tools = tool.NewRegistry(func(o *tool.Options) {
		o.Logger = logger
		o.Providers = provider.FromConfig(cfg.Providers, logger)
		if cfg.Providers.TimeZone != "" {
			o.TimeZone = cfg.Providers.TimeZone
		}
		o.Observer = func(out tool.Outcome, d time.Duration) {
			a.metrics.RecordToolExecution(out.Tool, string(out.State), d)
		}
	})

	var models factory.ModelSource
	if mockModels {
		models = factory.StaticModel(model.NewMockModel("mock", "mock"))
	} else {
		models = factory.NewModels(cfg.Models, func(o *factory.ModelsOptions) {
			o.Logger = logger
		})
	}

	a.env, err = factory.NewEnvironment(models, func(o *factory.Options) {
		o.Tools = a.tools
		o.Sink = sink
		o.Metrics = a.metrics
		o.Logger = logger
		o.DefaultRecipient = cfg.Providers.DefaultRecipient
		o.DefaultModel = cfg.Models.DefaultModel
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.store, err = a.resultStore(cfg.Store)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	return a, nil
}

// traceSink combines every enabled sink. No sink disables tracing.
func (a *app) traceSink(cfg config.TraceSinkConfig, logger logging.Logger) (trace.Sink, error) {
	var sinks trace.MultiSink

	if cfg.Log {
		sinks = append(sinks, trace.NewLogSink(logger))
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		sinks = append(sinks, trace.NewRedisSink(client))
	}

	if cfg.SQLiteDSN != "" {
		db, err := gorm.Open(sqlite.Open(cfg.SQLiteDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open trace database: %w", err)
		}

		sqlDB, err := db.DB()
		if err == nil {
			a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		}

		gs, err := trace.NewGormSink(db)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, gs)
	}

	if cfg.OTel {
		sinks = append(sinks, trace.NewOTelSink(telemetry.Tracer()))
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func (a *app) resultStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewInMemoryStore(cfg.TTL), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, &config.ValidationError{Field: "store.redis_addr", Message: "required for the redis backend"}
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		return store.NewRedisStore(client, cfg.TTL), nil
	default:
		return nil, &config.ValidationError{Field: "store.backend", Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

// Close releases the components in reverse order of creation.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}
