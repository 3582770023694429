package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"safestep/internal/intake/batch"
	"safestep/internal/intake/identity"
	"safestep/internal/intake/metrics"
	"safestep/internal/intake/notify"
	"safestep/internal/intake/notify/ses"
	"safestep/internal/intake/processor"
	"safestep/internal/intake/store"
	dynamostore "safestep/internal/intake/store/dynamodb"
	"safestep/internal/intake/store/memory"
	pgstore "safestep/internal/intake/store/postgres"
	"safestep/internal/intake/validation"
	awsplatform "safestep/internal/platform/aws"
	"safestep/internal/platform/config"
	"safestep/internal/platform/postgres"
	"safestep/internal/platform/redis"
	httptransport "safestep/internal/transport/http"
)

// App is the wired intake pipeline plus the resources it owns.
type App struct {
	Processor *processor.Processor
	Metrics   *metrics.Metrics
	Store     store.Store
	Checks    map[string]httptransport.Checker

	closers []func() error
}

// Close releases every resource opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires the processor from configuration. A failure part way through
// releases what was already opened.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (_ *App, err error) {
	app := &App{Checks: make(map[string]httptransport.Checker)}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.Store, err = buildStore(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	attr := cfg.Intake.IdentityAttribute
	var resolver processor.Resolver = identity.NewResolver(app.Store, cfg.Store.ContactTable, cfg.Store.ContactIndex, attr)

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		app.closers = append(app.closers, rc.Close)
		app.Checks["redis"] = rc
		resolver = identity.NewCachedResolver(resolver, rc.Client, cfg.Redis.IdentityTTL, logger.Named("identity_cache"))
	}

	rules, err := validation.Resolve(cfg.Intake.RulesFile, attr)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	sender, err := buildSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app.Metrics = metrics.New(reg)
	tables := batch.Tables{
		Contact:             cfg.Store.ContactTable,
		Responsibility:      cfg.Store.ResponsibilityTable,
		ResponsibilityIndex: cfg.Store.GreenIndex,
	}
	batchLogger := logger.Named("batch")
	newBatch := func() *batch.Accumulator {
		return batch.New(app.Store, tables, attr, batchLogger)
	}

	app.Processor = processor.New(
		validation.NewValidator(rules),
		resolver,
		newBatch,
		notify.New(sender, cfg.Notify.Source, cfg.Notify.Template, logger.Named("notify")),
		processor.WithLogger(logger.Named("processor")),
		processor.WithMetrics(app.Metrics),
		processor.WithLinkPolicy(cfg.Intake.LinkPolicy),
		processor.WithConcurrency(cfg.Intake.Concurrency, cfg.Intake.NotifyConcurrency),
	)
	return app, nil
}

func buildStore(ctx context.Context, cfg config.Config, app *App) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		st := pgstore.New(db)
		if cfg.Store.EnsureSchema {
			err := st.EnsureSchema(ctx, pgstore.Schema{
				ContactTable:        cfg.Store.ContactTable,
				ContactIndex:        cfg.Store.ContactIndex,
				IdentityColumn:      cfg.Intake.IdentityAttribute,
				ResponsibilityTable: cfg.Store.ResponsibilityTable,
				GreenIndex:          cfg.Store.GreenIndex,
			})
			if err != nil {
				return nil, err
			}
		}
		app.Checks["postgres"] = httptransport.CheckerFunc(st.Health)
		return st, nil
	case "dynamodb":
		awsCfg, err := awsplatform.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return dynamostore.NewFromConfig(awsCfg, awsplatform.Endpoint(cfg.AWS)), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func buildSender(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Sender, error) {
	switch cfg.Notify.Driver {
	case "log":
		return notify.NewLogSender(logger.Named("email")), nil
	case "ses":
		awsCfg, err := awsplatform.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return ses.NewFromConfig(awsCfg, awsplatform.Endpoint(cfg.AWS)), nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Notify.Driver)
	}
}
