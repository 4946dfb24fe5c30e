package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
)

// StorageDriver: где order-service хранит заказы.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Broker: куда отправляются уведомления о заказах.
type Broker string

const (
	BrokerNone     Broker = "none"
	BrokerKafka    Broker = "kafka"
	BrokerRabbitMQ Broker = "rabbitmq"
)

// Delivery: способ доставки события: сразу в брокер или через transactional outbox.
type Delivery string

const (
	DeliveryDirect Delivery = "direct"
	DeliveryOutbox Delivery = "outbox"
)

// StockDriver: хранилище остатков inventory-service.
type StockDriver string

const (
	StockDriverMemory StockDriver = "memory"
	StockDriverRedis  StockDriver = "redis"
	StockDriverMySQL  StockDriver = "mysql"
)

// Config: настройки order-service.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// InventoryURL: полный URL эндпоинта наличия. Пустой: используется in-process mock.
	InventoryURL         string
	AvailabilityTimeout  time.Duration
	InventoryHTTPTimeout time.Duration

	NotificationTopic string
	Broker            Broker
	Delivery          Delivery
	KafkaBrokers      []string
	RabbitMQURL       string
	RabbitMQExchange  string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending: порог backlog, выше которого /healthz отдаёт degraded. 0 отключает проверку.
	OutboxMaxPending int

	TimelineEnabled bool

	Tracing tracing.Config
}

// DefaultConfig возвращает локальные настройки order-service.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:             ":8080",
		GRPCAddr:             ":50051",
		MetricsAddr:          ":9090",
		StorageDriver:        StorageDriverMemory,
		PostgresAutoMigrate:  true,
		AvailabilityTimeout:  3 * time.Second,
		InventoryHTTPTimeout: 5 * time.Second,
		NotificationTopic:    domain.DefaultNotificationTopic,
		Broker:               BrokerNone,
		Delivery:             DeliveryDirect,
		RabbitMQExchange:     rabbitmq.DefaultExchange,
		OutboxPollInterval:   time.Second,
		OutboxBatchSize:      100,
		OutboxMaxAttempts:    3,
		OutboxRetryDelay:     50 * time.Millisecond,
		OutboxMaxPending:     1000,
		TimelineEnabled:      true,
		Tracing:              tracing.Config{ServiceName: "order-service"},
	}
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres storage requires a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}
	switch c.Broker {
	case BrokerNone:
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka broker requires at least one broker address"))
		}
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("rabbitmq broker requires a URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notification broker %q", c.Broker))
	}
	if c.Delivery != DeliveryDirect && c.Delivery != DeliveryOutbox {
		errs = append(errs, fmt.Errorf("unknown notification delivery %q", c.Delivery))
	}
	if c.AvailabilityTimeout <= 0 {
		errs = append(errs, errors.New("availability timeout must be positive"))
	}
	return errors.Join(errs...)
}

// InventoryConfig: настройки inventory-service.
type InventoryConfig struct {
	HTTPAddr    string
	MetricsAddr string

	StockDriver   StockDriver
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MySQLDSN      string
	// Seed: начальные остатки, записываются при старте.
	Seed map[string]int64

	Tracing tracing.Config
}

// DefaultInventoryConfig возвращает локальные настройки inventory-service.
func DefaultInventoryConfig() InventoryConfig {
	return InventoryConfig{
		HTTPAddr:    ":8082",
		MetricsAddr: ":9092",
		StockDriver: StockDriverMemory,
		RedisAddr:   "localhost:6379",
		Tracing:     tracing.Config{ServiceName: "inventory-service"},
	}
}

// Validate проверяет согласованность настроек.
func (c InventoryConfig) Validate() error {
	switch c.StockDriver {
	case StockDriverMemory:
		return nil
	case StockDriverRedis:
		if c.RedisAddr == "" {
			return errors.New("redis stock driver requires an address")
		}
		return nil
	case StockDriverMySQL:
		if c.MySQLDSN == "" {
			return errors.New("mysql stock driver requires a DSN")
		}
		return nil
	default:
		return fmt.Errorf("unknown stock driver %q", c.StockDriver)
	}
}

// NotificationConfig: настройки notification-service.
type NotificationConfig struct {
	MetricsAddr  string
	KafkaBrokers []string
	GroupID      string
	Topic        string
	DLQTopic     string
	MaxRetries   int

	Tracing tracing.Config
}

// DefaultNotificationConfig возвращает локальные настройки notification-service.
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		MetricsAddr:  ":9093",
		KafkaBrokers: []string{"localhost:9092"},
		GroupID:      "notificationId",
		Topic:        domain.DefaultNotificationTopic,
		DLQTopic:     kafka.TopicDeadLetterQueue,
		MaxRetries:   3,
		Tracing:      tracing.Config{ServiceName: "notification-service"},
	}
}

// Validate проверяет согласованность настроек.
func (c NotificationConfig) Validate() error {
	var errs []error
	if len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("notification service requires kafka brokers"))
	}
	if c.GroupID == "" {
		errs = append(errs, errors.New("consumer group id is required"))
	}
	if c.Topic == "" {
		errs = append(errs, errors.New("notification topic is required"))
	}
	return errors.Join(errs...)
}
