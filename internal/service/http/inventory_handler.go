package httpsvc

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// InventoryHandler обслуживает GET /api/inventory?skuCode=...
type InventoryHandler struct {
	checker domain.AvailabilityClient
	logger  *log.Entry
}

// NewInventoryHandler создаёт обработчик поверх источника наличия.
func NewInventoryHandler(checker domain.AvailabilityClient, logger *log.Entry) *InventoryHandler {
	if logger == nil {
		logger = log.New().WithField("component", "inventory-http")
	}
	return &InventoryHandler{checker: checker, logger: logger}
}

// IsInStock возвращает по записи на каждый запрошенный SKU.
func (h *InventoryHandler) IsInStock(w http.ResponseWriter, r *http.Request) {
	skus := r.URL.Query()["skuCode"]
	if len(skus) == 0 {
		writeError(w, http.StatusBadRequest, "sku_code_required", "at least one skuCode query parameter is required")
		return
	}

	result, err := h.checker.Check(r.Context(), skus)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).WithField("sku_count", len(skus)).Error("stock lookup failed")
		writeError(w, http.StatusServiceUnavailable, "stock_lookup_failed", "")
		return
	}
	if result == nil {
		result = domain.AvailabilityResult{}
	}
	writeJSON(w, http.StatusOK, result)
}
