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
	envMetricsAddr  = "SHOPFLOW_NOTIFICATION_METRICS_ADDR"
	envKafkaBrokers = "SHOPFLOW_KAFKA_BROKERS"
	envGroupID      = "SHOPFLOW_NOTIFICATION_GROUP_ID"
	envTopic        = "SHOPFLOW_NOTIFICATION_TOPIC"
	envDLQTopic     = "SHOPFLOW_NOTIFICATION_DLQ_TOPIC"
	envMaxRetries   = "SHOPFLOW_NOTIFICATION_MAX_RETRIES"
	envOTLPEndpoint = "SHOPFLOW_OTLP_ENDPOINT"
	envOTLPInsecure = "SHOPFLOW_OTLP_INSECURE"
)

func readConfigFromEnv(lookup envconfig.Lookup) (app.NotificationConfig, []string) {
	cfg := app.DefaultNotificationConfig()
	r := envconfig.NewReader(lookup)

	r.String(envMetricsAddr, &cfg.MetricsAddr)
	r.List(envKafkaBrokers, &cfg.KafkaBrokers)
	r.String(envGroupID, &cfg.GroupID)
	r.String(envTopic, &cfg.Topic)
	r.String(envDLQTopic, &cfg.DLQTopic)
	r.Int(envMaxRetries, &cfg.MaxRetries, envconfig.Positive, "must be > 0")
	r.String(envOTLPEndpoint, &cfg.Tracing.OTLPEndpoint)
	r.Bool(envOTLPInsecure, &cfg.Tracing.Insecure)

	return cfg, r.Warnings()
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.AddHook(tracing.LogHook{})

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunNotification(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("notification-service завершился с ошибкой")
	}
	log.Info("notification-service остановлен")
}
