package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubtab/clubtab/internal/jwt-new/jwtmiddleware"
	"github.com/clubtab/clubtab/internal/service"
)

// ConfirmCashHandler handles POST /api/v1/staff/orders/{id}/confirm-cash.
// This is the only way a cash order leaves pending_payment.
func ConfirmCashHandler(log *slog.Logger, fulfillment service.FulfillmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ConfirmCashHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := fulfillment.ConfirmCash(r.Context(), userID, chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("cash confirmation failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, NewOrderView(order))
	}
}
