package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopflow/internal/app"
	"github.com/vladislavdragonenkov/shopflow/internal/envconfig"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
)

const (
	envHTTPAddr             = "SHOPFLOW_HTTP_ADDR"
	envGRPCAddr             = "SHOPFLOW_GRPC_ADDR"
	envMetricsAddr          = "SHOPFLOW_METRICS_ADDR"
	envStorageDriver        = "SHOPFLOW_STORAGE_DRIVER"
	envPostgresDSN          = "SHOPFLOW_POSTGRES_DSN"
	envPostgresAutoMigrate  = "SHOPFLOW_POSTGRES_AUTO_MIGRATE"
	envInventoryURL         = "SHOPFLOW_INVENTORY_URL"
	envAvailabilityTimeout  = "SHOPFLOW_AVAILABILITY_TIMEOUT"
	envInventoryHTTPTimeout = "SHOPFLOW_INVENTORY_HTTP_TIMEOUT"
	envNotificationTopic    = "SHOPFLOW_NOTIFICATION_TOPIC"
	envNotificationBroker   = "SHOPFLOW_NOTIFICATION_BROKER"
	envNotificationDelivery = "SHOPFLOW_NOTIFICATION_DELIVERY"
	envKafkaBrokers         = "SHOPFLOW_KAFKA_BROKERS"
	envRabbitMQURL          = "SHOPFLOW_RABBITMQ_URL"
	envRabbitMQExchange     = "SHOPFLOW_RABBITMQ_EXCHANGE"
	envOutboxPollInterval   = "SHOPFLOW_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize      = "SHOPFLOW_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts    = "SHOPFLOW_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay     = "SHOPFLOW_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending     = "SHOPFLOW_OUTBOX_MAX_PENDING"
	envTimelineEnabled      = "SHOPFLOW_TIMELINE_ENABLED"
	envOTLPEndpoint         = "SHOPFLOW_OTLP_ENDPOINT"
	envOTLPInsecure         = "SHOPFLOW_OTLP_INSECURE"
	envLogLevel             = "SHOPFLOW_LOG_LEVEL"
)

// setupLogger настраивает формат и уровень логирования; trace_id/span_id добавляются через хук.
func setupLogger(lookup envconfig.Lookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if raw, ok := lookup(envLogLevel); ok {
		if level, err := log.ParseLevel(raw); err == nil {
			log.SetLevel(level)
		}
	}
	log.AddHook(tracing.LogHook{})
}

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
func readConfigFromEnv(lookup envconfig.Lookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	r := envconfig.NewReader(lookup)

	r.String(envHTTPAddr, &cfg.HTTPAddr)
	r.String(envGRPCAddr, &cfg.GRPCAddr)
	r.String(envMetricsAddr, &cfg.MetricsAddr)

	storage := string(cfg.StorageDriver)
	r.Lower(envStorageDriver, &storage)
	cfg.StorageDriver = app.StorageDriver(storage)
	r.String(envPostgresDSN, &cfg.PostgresDSN)
	r.Bool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	r.String(envInventoryURL, &cfg.InventoryURL)
	r.Duration(envAvailabilityTimeout, &cfg.AvailabilityTimeout, envconfig.PositiveDuration, "must be > 0")
	r.Duration(envInventoryHTTPTimeout, &cfg.InventoryHTTPTimeout, envconfig.PositiveDuration, "must be > 0")

	r.String(envNotificationTopic, &cfg.NotificationTopic)
	broker := string(cfg.Broker)
	r.Lower(envNotificationBroker, &broker)
	cfg.Broker = app.Broker(broker)
	delivery := string(cfg.Delivery)
	r.Lower(envNotificationDelivery, &delivery)
	cfg.Delivery = app.Delivery(delivery)
	r.List(envKafkaBrokers, &cfg.KafkaBrokers)
	r.String(envRabbitMQURL, &cfg.RabbitMQURL)
	r.String(envRabbitMQExchange, &cfg.RabbitMQExchange)

	r.Duration(envOutboxPollInterval, &cfg.OutboxPollInterval, envconfig.PositiveDuration, "must be > 0")
	r.Int(envOutboxBatchSize, &cfg.OutboxBatchSize, envconfig.Positive, "must be > 0")
	r.Int(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, envconfig.Positive, "must be > 0")
	r.Duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, envconfig.NonNegativeDuration, "must be >= 0")
	r.Int(envOutboxMaxPending, &cfg.OutboxMaxPending, envconfig.NonNegative, "must be >= 0")
	r.Bool(envTimelineEnabled, &cfg.TimelineEnabled)

	r.String(envOTLPEndpoint, &cfg.Tracing.OTLPEndpoint)
	r.Bool(envOTLPInsecure, &cfg.Tracing.Insecure)

	return cfg, r.Warnings()
}

func main() {
	setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"grpc_addr":    cfg.GRPCAddr,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем order-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("order-service остановлен")
}
