// Package app собирает и запускает сервисы shopflow: order, inventory и notification.
package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	healthcheck "github.com/vladislavdragonenkov/shopflow/internal/health"
	"github.com/vladislavdragonenkov/shopflow/internal/metrics"
	httpsvc "github.com/vladislavdragonenkov/shopflow/internal/service/http"
	"github.com/vladislavdragonenkov/shopflow/internal/service/outbox"
	"github.com/vladislavdragonenkov/shopflow/internal/service/placement"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
	"github.com/vladislavdragonenkov/shopflow/internal/version"
)

const tracerName = "github.com/vladislavdragonenkov/shopflow"

// Run запускает order-service и блокируется до отмены ctx или ошибки одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := log.WithField("component", "order-service")

	provider, shutdownTracing, err := tracing.Setup(ctx, withVersion(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdownWithTimeout(ctx, shutdownTracing, logger)
	tracer := provider.Tracer(tracerName)

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close dependencies")
		}
	}()

	opts := []placement.Option{
		placement.WithLogger(logger.WithField("layer", "placement")),
		placement.WithMetrics(metrics.NewPlacementMetrics()),
		placement.WithTopic(cfg.NotificationTopic),
		placement.WithAvailabilityTimeout(cfg.AvailabilityTimeout),
	}
	if deps.Timeline != nil {
		opts = append(opts, placement.WithTimeline(deps.Timeline))
	}
	orchestrator := placement.NewOrchestrator(deps.Availability, deps.Orders, deps.Publisher, tracer, opts...)

	router := httpsvc.NewOrderRouter(
		httpsvc.NewOrderHandler(orchestrator, deps.Orders, deps.Timeline, logger.WithField("layer", "http")),
		tracer,
		logger.WithField("layer", "http"),
	)

	healthHandler := healthcheck.NewHandler("order-service", version.GetVersion())
	for name, checker := range deps.Checkers {
		healthHandler.RegisterChecker(name, checker)
	}

	grpcServer, grpcHealth := newGRPCServer(logger.WithField("layer", "grpc"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(gctx, "order api", cfg.HTTPAddr, router, logger)
	})
	g.Go(func() error {
		return serveGRPC(gctx, cfg.GRPCAddr, grpcServer, grpcHealth, logger)
	})
	g.Go(func() error {
		return serveHTTP(gctx, "metrics", cfg.MetricsAddr, newMetricsMux(healthHandler), logger)
	})
	if cfg.Delivery == DeliveryOutbox {
		worker := newOutboxWorker(cfg, deps, tracer)
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	logger.WithFields(log.Fields{
		"storage":  cfg.StorageDriver,
		"broker":   cfg.Broker,
		"delivery": cfg.Delivery,
		"version":  version.GetVersion(),
	}).Info("order-service started")

	return g.Wait()
}

func newOutboxWorker(cfg Config, deps *Dependencies, tracer trace.Tracer) *outbox.Worker {
	opts := []outbox.Option{
		outbox.WithLogger(deps.Logger.WithField("layer", "outbox")),
		outbox.WithTracer(tracer),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if deps.DLQ != nil {
		opts = append(opts, outbox.WithDLQPublisher(deps.DLQ))
	}
	return outbox.NewWorker(deps.Outbox, deps.Relay, opts...)
}

func withVersion(cfg tracing.Config) tracing.Config {
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = version.GetVersion()
	}
	return cfg
}

func shutdownWithTimeout(ctx context.Context, shutdown tracing.ShutdownFunc, logger *log.Entry) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("tracer provider shutdown failed")
	}
}
