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
	envHTTPAddr      = "SHOPFLOW_INVENTORY_HTTP_ADDR"
	envMetricsAddr   = "SHOPFLOW_INVENTORY_METRICS_ADDR"
	envStockDriver   = "SHOPFLOW_STOCK_DRIVER"
	envRedisAddr     = "SHOPFLOW_REDIS_ADDR"
	envRedisPassword = "SHOPFLOW_REDIS_PASSWORD"
	envRedisDB       = "SHOPFLOW_REDIS_DB"
	envMySQLDSN      = "SHOPFLOW_MYSQL_DSN"
	envSeed          = "SHOPFLOW_INVENTORY_SEED"
	envOTLPEndpoint  = "SHOPFLOW_OTLP_ENDPOINT"
	envOTLPInsecure  = "SHOPFLOW_OTLP_INSECURE"
)

func readConfigFromEnv(lookup envconfig.Lookup) (app.InventoryConfig, []string) {
	cfg := app.DefaultInventoryConfig()
	r := envconfig.NewReader(lookup)

	r.String(envHTTPAddr, &cfg.HTTPAddr)
	r.String(envMetricsAddr, &cfg.MetricsAddr)
	driver := string(cfg.StockDriver)
	r.Lower(envStockDriver, &driver)
	cfg.StockDriver = app.StockDriver(driver)
	r.String(envRedisAddr, &cfg.RedisAddr)
	r.String(envRedisPassword, &cfg.RedisPassword)
	r.Int(envRedisDB, &cfg.RedisDB, envconfig.NonNegative, "must be >= 0")
	r.String(envMySQLDSN, &cfg.MySQLDSN)
	r.Quantities(envSeed, &cfg.Seed)
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

	if err := app.RunInventory(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("inventory-service завершился с ошибкой")
	}
	log.Info("inventory-service остановлен")
}
