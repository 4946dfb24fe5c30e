package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	healthcheck "github.com/vladislavdragonenkov/shopflow/internal/health"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shopflow/internal/metrics"
	"github.com/vladislavdragonenkov/shopflow/internal/service/notification"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
	"github.com/vladislavdragonenkov/shopflow/internal/version"
)

// RunNotification запускает notification-service: Kafka consumer группы cfg.GroupID
// с повторными попытками и DLQ. Блокируется до отмены ctx.
func RunNotification(ctx context.Context, cfg NotificationConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := log.WithField("component", "notification-service")

	provider, shutdownTracing, err := tracing.Setup(ctx, withVersion(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdownWithTimeout(ctx, shutdownTracing, logger)

	dlqProducer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return fmt.Errorf("create dlq producer: %w", err)
	}
	defer func() {
		if err := closeKafka(dlqProducer, logger); err != nil {
			logger.WithError(err).Warn("failed to close dlq producer")
		}
	}()

	handler := notification.NewHandler(
		provider.Tracer(tracerName),
		notification.LogSender{Logger: logger.WithField("layer", "sender")},
		metrics.NewNotificationMetrics(),
		logger.WithField("layer", "handler"),
	)
	consumer, err := kafka.NewConsumerWithDLQ(cfg.KafkaBrokers, cfg.GroupID, []string{cfg.Topic}, handler.Handle, dlqProducer, cfg.MaxRetries)
	if err != nil {
		return err
	}
	consumer.SetDLQTopic(cfg.DLQTopic)

	healthHandler := healthcheck.NewHandler("notification-service", version.GetVersion())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := consumer.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return consumer.Stop()
	})
	g.Go(func() error {
		return serveHTTP(gctx, "metrics", cfg.MetricsAddr, newMetricsMux(healthHandler), logger)
	})

	logger.WithFields(log.Fields{
		"topic":    cfg.Topic,
		"group_id": cfg.GroupID,
		"dlq":      cfg.DLQTopic,
		"version":  version.GetVersion(),
	}).Info("notification-service started")
	return g.Wait()
}
