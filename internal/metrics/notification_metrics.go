package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics считает обработанные уведомления.
type NotificationMetrics struct {
	received *prometheus.CounterVec
}

// NewNotificationMetrics создаёт метрики в DefaultRegisterer.
func NewNotificationMetrics() *NotificationMetrics {
	return NewNotificationMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewNotificationMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewNotificationMetricsWithRegisterer(registerer prometheus.Registerer) *NotificationMetrics {
	return &NotificationMetrics{
		received: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopflow_notifications_total",
			Help: "Total number of OrderPlaced notifications grouped by result",
		}, []string{"result"}),
	}
}

// RecordHandled фиксирует успешно обработанное уведомление.
func (m *NotificationMetrics) RecordHandled() {
	m.received.WithLabelValues("handled").Inc()
}

// RecordRejected фиксирует уведомление, которое не удалось разобрать.
func (m *NotificationMetrics) RecordRejected() {
	m.received.WithLabelValues("rejected").Inc()
}
