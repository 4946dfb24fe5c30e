package app

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shopflow/internal/health"
	httpsvc "github.com/vladislavdragonenkov/shopflow/internal/service/http"
	"github.com/vladislavdragonenkov/shopflow/internal/service/inventory"
	"github.com/vladislavdragonenkov/shopflow/internal/storage/memory"
	"github.com/vladislavdragonenkov/shopflow/internal/storage/mysql"
	redisstore "github.com/vladislavdragonenkov/shopflow/internal/storage/redis"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
	"github.com/vladislavdragonenkov/shopflow/internal/version"
)

// RunInventory запускает inventory-service и блокируется до отмены ctx.
func RunInventory(ctx context.Context, cfg InventoryConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := log.WithField("component", "inventory-service")

	provider, shutdownTracing, err := tracing.Setup(ctx, withVersion(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdownWithTimeout(ctx, shutdownTracing, logger)

	healthHandler := healthcheck.NewHandler("inventory-service", version.GetVersion())
	stock, closer, err := openStock(ctx, cfg, healthHandler, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close stock storage")
		}
	}()

	svc := inventory.NewService(stock, logger.WithField("layer", "service"))
	for sku, qty := range cfg.Seed {
		if err := svc.Restock(ctx, sku, qty); err != nil {
			return fmt.Errorf("seed stock for %s: %w", sku, err)
		}
	}
	if len(cfg.Seed) > 0 {
		logger.WithField("skus", len(cfg.Seed)).Info("stock seeded")
	}

	router := httpsvc.NewInventoryRouter(
		httpsvc.NewInventoryHandler(svc, logger.WithField("layer", "http")),
		provider.Tracer(tracerName),
		logger.WithField("layer", "http"),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(gctx, "inventory api", cfg.HTTPAddr, router, logger)
	})
	g.Go(func() error {
		return serveHTTP(gctx, "metrics", cfg.MetricsAddr, newMetricsMux(healthHandler), logger)
	})

	logger.WithFields(log.Fields{
		"stock_driver": cfg.StockDriver,
		"version":      version.GetVersion(),
	}).Info("inventory-service started")
	return g.Wait()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStock(ctx context.Context, cfg InventoryConfig, h *healthcheck.Handler, logger *log.Entry) (domain.StockRepository, io.Closer, error) {
	switch cfg.StockDriver {
	case StockDriverRedis:
		client, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		h.RegisterChecker("redis", healthcheck.PingChecker("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		logger.WithField("addr", cfg.RedisAddr).Info("using redis stock storage")
		return redisstore.NewStockRepository(client), client, nil
	case StockDriverMySQL:
		db, err := mysql.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		repo := mysql.NewStockRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		h.RegisterChecker("mysql", healthcheck.PingChecker("mysql", db.PingContext))
		logger.Info("using mysql stock storage")
		return repo, db, nil
	default:
		logger.Info("using in-memory stock storage")
		return memory.NewStockRepository(nil), closerFunc(func() error { return nil }), nil
	}
}
