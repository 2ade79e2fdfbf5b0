package handlers

import (
	"log/slog"
	"net/http"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/jwt-new/jwtmiddleware"
	"github.com/clubtab/clubtab/internal/service"
)

// StaffOrdersHandler handles GET /api/v1/staff/orders. Without a status
// filter the queue shows paid, preparing and ready orders.
func StaffOrdersHandler(log *slog.Logger, fulfillment service.FulfillmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.StaffOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var statusFilter *models.OrderStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := models.OrderStatus(raw)
			if !status.Valid() {
				logger.Error("unknown status filter", slog.String("status", raw))
				writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
					Kind: "validation", Detail: "unknown status: " + raw,
				}})
				return
			}
			statusFilter = &status
		}

		orders, err := fulfillment.VenueOrders(r.Context(), userID, statusFilter)
		if err != nil {
			logger.Error("failed to list venue orders", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		views := make([]OrderView, 0, len(orders))
		for _, order := range orders {
			views = append(views, NewOrderView(order))
		}
		writeJSON(w, logger, http.StatusOK, views)
	}
}
