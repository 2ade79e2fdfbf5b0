package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/jwt-new/jwtmiddleware"
	"github.com/clubtab/clubtab/internal/service"
)

// UpdateStatusRequest carries the target status of an explicit staff update.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatusHandler handles PUT /api/v1/staff/orders/{id}/status.
func UpdateStatusHandler(log *slog.Logger, fulfillment service.FulfillmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateStatusHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Kind: "malformed_request", Detail: "invalid request body",
			}})
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Kind: "validation", Detail: err.Error(),
			}})
			return
		}

		target := models.OrderStatus(req.Status)
		if !target.Valid() {
			logger.Error("unknown status requested", slog.String("status", req.Status))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Kind: "validation", Detail: "unknown status: " + req.Status,
			}})
			return
		}

		order, err := fulfillment.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), target)
		if err != nil {
			logger.Error("status update failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, NewOrderView(order))
	}
}
