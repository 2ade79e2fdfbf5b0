package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clubtab/clubtab/internal/jwt-new/jwtmiddleware"
	"github.com/clubtab/clubtab/internal/service"
)

// ScanRequest carries the fulfillment code read from a customer's screen.
type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}

// ScanHandler handles POST /api/v1/staff/scan.
func ScanHandler(log *slog.Logger, fulfillment service.FulfillmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ScanHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req ScanRequest
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

		order, err := fulfillment.Scan(r.Context(), userID, req.Code)
		if err != nil {
			logger.Error("scan failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, NewOrderView(order))
	}
}
