package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// PlacementMetrics содержит метрики размещения заказов.
type PlacementMetrics struct {
	placements           *prometheus.CounterVec
	availabilityDuration *prometheus.HistogramVec
	publishFailures      prometheus.Counter
	placementDuration    prometheus.Histogram
	inFlight             prometheus.Gauge
}

// NewPlacementMetrics создаёт метрики в DefaultRegisterer.
func NewPlacementMetrics() *PlacementMetrics {
	return NewPlacementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewPlacementMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewPlacementMetricsWithRegisterer(registerer prometheus.Registerer) *PlacementMetrics {
	return &PlacementMetrics{
		placements: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopflow_order_placements_total",
			Help: "Total number of order placements grouped by outcome",
		}, []string{"outcome"}),
		availabilityDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shopflow_availability_check_duration_seconds",
			Help:    "Duration of inventory availability checks in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"result"}),
		publishFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopflow_order_placed_publish_failures_total",
			Help: "Total number of OrderPlaced events that could not be handed to the publisher",
		}),
		placementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shopflow_order_placement_duration_seconds",
			Help:    "End-to-end duration of PlaceOrder in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shopflow_order_placements_in_flight",
			Help: "Number of order placements currently in progress",
		}),
	}
}

// RecordStarted увеличивает количество активных размещений.
func (m *PlacementMetrics) RecordStarted() {
	m.inFlight.Inc()
}

// RecordFinished фиксирует итог размещения и его длительность.
func (m *PlacementMetrics) RecordFinished(outcome domain.PlacementOutcome, duration time.Duration) {
	m.inFlight.Dec()
	m.placements.WithLabelValues(string(outcome.Status)).Inc()
	m.placementDuration.Observe(duration.Seconds())
}

// RecordAvailabilityCheck записывает длительность проверки наличия. result: ok|error.
func (m *PlacementMetrics) RecordAvailabilityCheck(result string, duration time.Duration) {
	m.availabilityDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordPublishFailure увеличивает счётчик неудачных публикаций.
func (m *PlacementMetrics) RecordPublishFailure() {
	m.publishFailures.Inc()
}
