package rabbitmq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultExchange: topic exchange для событий заказов.
	DefaultExchange = "shopflow.events"
	exchangeType    = "topic"

	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// SetupConn подключается к RabbitMQ с несколькими попытками и объявляет durable topic exchange.
func SetupConn(url, exchange string, logger *log.Entry) (*amqp.Connection, *amqp.Channel, error) {
	if logger == nil {
		logger = log.WithField("component", "rabbitmq")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.WithError(err).WithField("attempt", attempt).Warn("failed to connect to rabbitmq")
		if attempt < dialAttempts {
			time.Sleep(dialBackoff)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,     // name
		exchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return conn, ch, nil
}
