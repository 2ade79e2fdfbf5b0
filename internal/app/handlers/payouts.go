package handlers

import (
	"log/slog"
	"net/http"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/jwt-new/jwtmiddleware"
	"github.com/clubtab/clubtab/internal/service"
)

// PayoutStatusHandler handles GET /api/v1/payouts/status for operators.
func PayoutStatusHandler(log *slog.Logger, payouts service.PayoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayoutStatusHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		role, _ := jwtmiddleware.RoleFromContext(r.Context())
		if role != models.RoleOperator {
			logger.Error("payout status requested by non-operator", slog.String("role", role))
			writeServiceError(w, logger, service.ErrForbidden)
			return
		}

		status, err := payouts.Status(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get payout status", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, status)
	}
}
