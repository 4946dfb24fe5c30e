// Package httpsvc содержит HTTP API сервисов заказов и склада (chi).
package httpsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

const maxRequestBody = 1 << 20

// OrderPlacer размещает заказ. Реализуется placement.Orchestrator.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) domain.PlacementOutcome
}

// PlaceOrderResponse: ответ на POST /api/order.
type PlaceOrderResponse struct {
	OrderNumber string `json:"orderNumber,omitempty"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Notified    bool   `json:"notified"`
	Message     string `json:"message"`
}

// LineItemResponse: позиция заказа в ответе.
type LineItemResponse struct {
	SKUCode  string          `json:"skuCode"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderResponse: заказ в ответе GET /api/order/{orderNumber}.
type OrderResponse struct {
	OrderNumber string             `json:"orderNumber"`
	LineItems   []LineItemResponse `json:"lineItems"`
	Total       decimal.Decimal    `json:"total"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// TimelineEntryResponse: шаг размещения в ответе /timeline.
type TimelineEntryResponse struct {
	State    string    `json:"state"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// OrderHandler обслуживает /api/order.
type OrderHandler struct {
	placer   OrderPlacer
	orders   domain.OrderStore
	timeline domain.TimelineRepository
	logger   *log.Entry
}

// NewOrderHandler создаёт обработчик. timeline может быть nil, тогда /timeline отвечает 404.
func NewOrderHandler(placer OrderPlacer, orders domain.OrderStore, timeline domain.TimelineRepository, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.New().WithField("component", "order-http")
	}
	return &OrderHandler{placer: placer, orders: orders, timeline: timeline, logger: logger}
}

// PlaceOrder обрабатывает POST /api/order.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	outcome := h.placer.PlaceOrder(r.Context(), req)
	status := placementHTTPStatus(outcome)

	resp := PlaceOrderResponse{
		OrderNumber: outcome.OrderNumber,
		Status:      string(outcome.Status),
		Reason:      outcome.Reason,
		Notified:    outcome.Notified,
		Message:     placementMessage(outcome),
	}
	if outcome.Err != nil && status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).WithError(outcome.Err).WithField("reason", outcome.Reason).Warn("order placement failed")
	}
	writeJSON(w, status, resp)
}

func placementHTTPStatus(outcome domain.PlacementOutcome) int {
	switch outcome.Status {
	case domain.PlacementAccepted:
		return http.StatusCreated
	case domain.PlacementRejected:
		if errors.Is(outcome.Err, domain.ErrOutOfStock) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func placementMessage(outcome domain.PlacementOutcome) string {
	switch outcome.Status {
	case domain.PlacementAccepted:
		return "Order placed successfully"
	case domain.PlacementRejected:
		if errors.Is(outcome.Err, domain.ErrOutOfStock) {
			return "Product is not in stock, please try again later"
		}
		return "Order request is invalid"
	default:
		return "Order could not be placed, please try again later"
	}
}

// GetOrder обрабатывает GET /api/order/{orderNumber}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.orders.Get(r.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order_not_found", orderNumber)
			return
		}
		h.logger.WithContext(r.Context()).WithError(err).WithField("order_number", orderNumber).Error("failed to load order")
		writeError(w, http.StatusInternalServerError, "order_store_error", "")
		return
	}

	items := make([]LineItemResponse, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, LineItemResponse{SKUCode: item.SKUCode, Quantity: item.Quantity, Price: item.Price})
	}
	writeJSON(w, http.StatusOK, OrderResponse{
		OrderNumber: order.OrderNumber,
		LineItems:   items,
		Total:       order.Total(),
		CreatedAt:   order.CreatedAt,
	})
}

// GetTimeline обрабатывает GET /api/order/{orderNumber}/timeline.
func (h *OrderHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	if h.timeline == nil {
		writeError(w, http.StatusNotFound, "timeline_disabled", "")
		return
	}

	events, err := h.timeline.List(r.Context(), orderNumber)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("failed to load timeline")
		writeError(w, http.StatusInternalServerError, "timeline_error", "")
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, "order_not_found", orderNumber)
		return
	}

	resp := make([]TimelineEntryResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, TimelineEntryResponse{State: string(e.State), Reason: e.Reason, Occurred: e.Occurred})
	}
	writeJSON(w, http.StatusOK, resp)
}
