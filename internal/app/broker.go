package app

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shopflow/internal/health"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/noop"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/rabbitmq"
)

// brokerClients: publisher'ы выбранного брокера и функция закрытия соединений.
type brokerClients struct {
	events  domain.EventPublisher
	relay   domain.OutboxPublisher
	dlq     domain.OutboxPublisher
	checker healthcheck.Checker
	close   func() error
}

// initBroker подключается к брокеру из cfg. Для BrokerNone события только логируются.
func initBroker(cfg Config, logger *log.Entry) (*brokerClients, error) {
	switch cfg.Broker {
	case BrokerKafka:
		return initKafka(cfg, logger)
	case BrokerRabbitMQ:
		return initRabbitMQ(cfg, logger)
	case BrokerNone, "":
		pub := noop.NewPublisher(logger.WithField("broker", "none"))
		logger.Warn("no notification broker configured, OrderPlaced events are only logged")
		return &brokerClients{events: pub, relay: noop.OutboxPublisher{Publisher: pub}, close: func() error { return nil }}, nil
	default:
		return nil, fmt.Errorf("unknown notification broker %q", cfg.Broker)
	}
}

// initKafka создаёт producer и publisher'ы поверх него.
func initKafka(cfg Config, logger *log.Entry) (*brokerClients, error) {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, err
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

	return &brokerClients{
		events: kafka.NewEventPublisher(producer),
		relay:  kafka.NewOutboxPublisher(producer, cfg.NotificationTopic),
		dlq:    kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue),
		close:  func() error { return closeKafka(producer, logger) },
	}, nil
}

// closeKafka закрывает producer, если он есть.
func closeKafka(producer *kafka.Producer, logger *log.Entry) error {
	if producer == nil {
		return nil
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return err
	}
	logger.Info("kafka producer closed")
	return nil
}

func initRabbitMQ(cfg Config, logger *log.Entry) (*brokerClients, error) {
	conn, ch, err := rabbitmq.SetupConn(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger.WithField("broker", "rabbitmq"))
	if err != nil {
		return nil, err
	}
	logger.WithField("exchange", cfg.RabbitMQExchange).Info("rabbitmq publisher initialized")

	return &brokerClients{
		events:  rabbitmq.NewPublisher(ch, cfg.RabbitMQExchange),
		relay:   rabbitmq.NewOutboxPublisher(ch, cfg.RabbitMQExchange, cfg.NotificationTopic),
		checker: rabbitMQChecker(conn),
		close: func() error {
			return errors.Join(ch.Close(), conn.Close())
		},
	}, nil
}

func rabbitMQChecker(conn *amqp.Connection) healthcheck.Checker {
	return healthcheck.PingChecker("rabbitmq", func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("rabbitmq connection is closed")
		}
		return nil
	})
}
