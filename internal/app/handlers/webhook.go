package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/clubtab/clubtab/internal/payments"
	"github.com/clubtab/clubtab/internal/service"
)

const maxWebhookBodyBytes = int64(65536)

// WebhookHandler handles POST /api/v1/payments/webhook. Signature and payload
// failures are rejected with 400 before any order state is touched; verified
// events that match nothing still get the fixed acknowledgment so the gateway
// does not redeliver them forever.
func WebhookHandler(log *slog.Logger, gateway payments.Gateway, reconciler service.ReconcileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WebhookHandler"
		logger := log.With(slog.String("op", op))

		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error("failed to read webhook body", slog.Any("error", err))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Kind: "malformed_payload", Detail: "failed to read request body",
			}})
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			logger.Error("missing signature header")
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Kind: "invalid_signature", Detail: "missing Stripe-Signature header",
			}})
			return
		}

		event, err := gateway.VerifyAndParseEvent(payload, sigHeader)
		if err != nil {
			kind := "malformed_payload"
			if errors.Is(err, payments.ErrInvalidSignature) {
				kind = "invalid_signature"
			}
			logger.Error("webhook verification failed", slog.Any("error", err))
			writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Kind: kind, Detail: err.Error(),
			}})
			return
		}

		if err := reconciler.HandleEvent(r.Context(), event); err != nil {
			// A real processing failure: respond 500 so the gateway retries.
			logger.Error("failed to handle event", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "received"})
	}
}
