package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	inventoryclient "github.com/vladislavdragonenkov/shopflow/internal/client/inventory"
	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shopflow/internal/health"
	"github.com/vladislavdragonenkov/shopflow/internal/service/inventory"
	"github.com/vladislavdragonenkov/shopflow/internal/service/outbox"
	"github.com/vladislavdragonenkov/shopflow/internal/storage/memory"
	"github.com/vladislavdragonenkov/shopflow/internal/storage/postgres"
)

// Dependencies: собранные зависимости order-service.
type Dependencies struct {
	Orders       domain.OrderStore
	Timeline     domain.TimelineRepository
	Outbox       domain.OutboxRepository
	Availability domain.AvailabilityClient
	Publisher    domain.EventPublisher
	// Relay доставляет outbox-сообщения в брокер; используется только в режиме outbox.
	Relay domain.OutboxPublisher
	DLQ   domain.OutboxPublisher

	Checkers map[string]healthcheck.Checker
	Logger   *log.Entry

	// outboxInOrderTx: OrderPlaced пишется в outbox транзакцией сохранения заказа.
	outboxInOrderTx bool
	closers         []func() error
}

// Close освобождает соединения в обратном порядке создания.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// NewDependencies собирает хранилища, клиента склада и publisher по cfg.
// При ошибке уже открытые соединения закрываются.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	deps := &Dependencies{Checkers: make(map[string]healthcheck.Checker), Logger: logger}
	if err := deps.init(ctx, cfg); err != nil {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to release partially initialized dependencies")
		}
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) init(ctx context.Context, cfg Config) error {
	if err := initStorage(ctx, cfg, d); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	availability, err := initAvailability(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("init inventory client: %w", err)
	}
	d.Availability = availability

	broker, err := initBroker(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("init notification broker: %w", err)
	}
	d.closers = append(d.closers, broker.close)
	if broker.checker != nil {
		d.Checkers["broker"] = broker.checker
	}

	d.Relay = broker.relay
	d.DLQ = broker.dlq
	if cfg.Delivery == DeliveryOutbox {
		if d.outboxInOrderTx {
			d.Publisher = outbox.CommittedPublisher{}
		} else {
			d.Publisher = outbox.NewEventPublisher(d.Outbox)
		}
		if cfg.OutboxMaxPending > 0 {
			d.Checkers["outbox"] = outboxBacklogChecker(d.Outbox, cfg.OutboxMaxPending)
		}
	} else {
		d.Publisher = broker.events
	}
	return nil
}

func initStorage(ctx context.Context, cfg Config, deps *Dependencies) error {
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.DefaultPoolConfig(), deps.Logger.WithField("storage", "postgres"))
		if err != nil {
			return err
		}
		deps.closers = append(deps.closers, store.Close)
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
		}
		var orderOpts []postgres.OrderStoreOption
		if cfg.Delivery == DeliveryOutbox {
			orderOpts = append(orderOpts, postgres.WithOutboxMessages(outbox.OrderPlacedMessages(cfg.NotificationTopic)))
			deps.outboxInOrderTx = true
		}
		deps.Orders = postgres.NewOrderStore(store, orderOpts...)
		deps.Outbox = postgres.NewOutboxRepository(store)
		if cfg.TimelineEnabled {
			deps.Timeline = postgres.NewTimelineRepository(store)
		}
		deps.Checkers["postgres"] = healthcheck.PingChecker("postgres", store.Ping)
	case StorageDriverMemory, "":
		deps.Orders = memory.NewOrderStore()
		deps.Outbox = memory.NewOutboxRepository()
		if cfg.TimelineEnabled {
			deps.Timeline = memory.NewTimelineRepository()
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	return nil
}

// initAvailability возвращает HTTP-клиента склада или in-process mock, если URL не задан.
func initAvailability(cfg Config, logger *log.Entry) (domain.AvailabilityClient, error) {
	if cfg.InventoryURL == "" {
		logger.Warn("inventory URL is not configured, using in-process mock: every sku is in stock")
		return inventory.NewMockClient(), nil
	}
	return inventoryclient.NewClient(cfg.InventoryURL,
		inventoryclient.WithHTTPClient(&http.Client{Timeout: cfg.InventoryHTTPTimeout}),
		inventoryclient.WithLogger(logger.WithField("component", "inventory-client")),
	)
}

// outboxBacklogChecker отдаёт degraded, если pending-сообщений больше limit.
func outboxBacklogChecker(repo domain.OutboxRepository, limit int) healthcheck.Checker {
	return healthcheck.CheckerFunc(func(ctx context.Context) healthcheck.Check {
		stats, err := repo.Stats(ctx)
		if err != nil {
			return healthcheck.Check{Name: "outbox", Status: healthcheck.StatusUnhealthy, Message: err.Error()}
		}
		if stats.PendingCount > limit {
			return healthcheck.Check{
				Name:    "outbox",
				Status:  healthcheck.StatusDegraded,
				Message: fmt.Sprintf("%d pending messages exceed limit %d", stats.PendingCount, limit),
			}
		}
		return healthcheck.Check{Name: "outbox", Status: healthcheck.StatusHealthy}
	})
}
