package kafka

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// Topics для Kafka
const (
	TopicDeadLetterQueue = "shopflow.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderEventType     = "x-event-type"
	HeaderOutboxID      = "x-outbox-id"
)

// ParseOrderPlacedEvent парсит OrderPlacedEvent из сообщения
func ParseOrderPlacedEvent(message *sarama.ConsumerMessage) (domain.OrderPlacedEvent, error) {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return domain.OrderPlacedEvent{}, fmt.Errorf("failed to unmarshal order placed event: %w", err)
	}
	if strings.TrimSpace(event.OrderNumber) == "" {
		return domain.OrderPlacedEvent{}, fmt.Errorf("order placed event without order number")
	}
	return event, nil
}
