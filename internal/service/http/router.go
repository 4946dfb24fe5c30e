package httpsvc

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
)

// NewOrderRouter собирает маршруты order-service.
func NewOrderRouter(h *OrderHandler, tracer trace.Tracer, logger *log.Entry) http.Handler {
	r := newRouter(tracer, logger)
	r.Post("/api/order", h.PlaceOrder)
	r.Get("/api/order/{orderNumber}", h.GetOrder)
	r.Get("/api/order/{orderNumber}/timeline", h.GetTimeline)
	return r
}

// NewInventoryRouter собирает маршруты inventory-service.
func NewInventoryRouter(h *InventoryHandler, tracer trace.Tracer, logger *log.Entry) http.Handler {
	r := newRouter(tracer, logger)
	r.Get("/api/inventory", h.IsInStock)
	return r
}

func newRouter(tracer trace.Tracer, logger *log.Entry) chi.Router {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tracing.HTTPMiddleware(tracer))
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	return r
}

// requestLogger пишет одну строку на запрос через logrus.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithContext(r.Context()).WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("http request")
		})
	}
}
