package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kadm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	awsplatform "safestep/internal/platform/aws"
	"safestep/internal/platform/config"
	"safestep/internal/platform/httpserver"
	"safestep/internal/platform/logger"
	"safestep/internal/queue/kafka"
	"safestep/internal/queue/sqs"
	httptransport "safestep/internal/transport/http"
)

// runner is a queue consumer loop.
type runner interface {
	Run(ctx context.Context) error
}

// NewServeCommand creates the serve command.
func NewServeCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume the referral queue until interrupted",
		Long: `Run the configured queue consumer and the ops HTTP server (/healthz,
/readyz, /metrics) until SIGINT or SIGTERM. All settings come from the
environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		return WrapExitError(ExitCommandError, "build logger", err)
	}
	defer func() { _ = log.Sync() }()

	app, err := Build(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return WrapExitError(ExitCommandError, "wire intake", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()

	consumer, closeQueue, err := buildConsumer(ctx, cfg, app, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "wire queue", err)
	}
	defer closeQueue()

	srv := httpserver.New(cfg.MetricsAddr, httptransport.NewRouter(httptransport.NewHandler(log.Named("ops"), app.Checks)))

	log.Info("intake starting",
		zap.String("store", cfg.Store.Driver),
		zap.String("queue", cfg.Queue.Driver),
		zap.String("notify", cfg.Notify.Driver),
		zap.String("identity", cfg.Intake.IdentityAttribute),
		zap.String("link_policy", cfg.Intake.LinkPolicy),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(gctx, srv, log) })
	g.Go(func() error { return consumer.Run(gctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("intake stopped")
	return nil
}

func buildConsumer(ctx context.Context, cfg config.Config, app *App, log *zap.Logger) (runner, func(), error) {
	switch cfg.Queue.Driver {
	case "kafka":
		kcfg := kafka.Config{
			Brokers:   cfg.Queue.KafkaBrokers,
			Topic:     cfg.Queue.KafkaTopic,
			Group:     cfg.Queue.KafkaGroup,
			DLQTopic:  cfg.Queue.KafkaDLQ,
			BatchSize: cfg.Queue.BatchSize,
		}
		client, err := kafka.NewClient(kcfg)
		if err != nil {
			return nil, nil, err
		}
		if err := kafka.EnsureTopics(ctx, kadm.NewClient(client), kcfg.Topic, kcfg.DLQTopic); err != nil {
			client.Close()
			return nil, nil, err
		}
		app.Checks["kafka"] = httptransport.CheckerFunc(client.Ping)
		return kafka.NewConsumer(client, app.Processor, kcfg, log.Named("kafka")), client.Close, nil
	case "sqs":
		awsCfg, err := awsplatform.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, nil, err
		}
		client := sqs.NewClient(awsCfg, awsplatform.Endpoint(cfg.AWS))
		return sqs.NewConsumer(client, app.Processor, cfg.Queue.SQSQueueURL, cfg.Queue.BatchSize, cfg.Queue.SQSWaitTime, log.Named("sqs")), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}
