package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/payments"
	"github.com/clubtab/clubtab/internal/service"
)

// OrderItemView is the client-facing shape of one order line.
type OrderItemView struct {
	ID              string `json:"id"`
	DrinkID         string `json:"drink_id"`
	DrinkName       string `json:"drink_name,omitempty"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}

// OrderView is the single client-facing shape of an order; every handler
// converts through it so responses cannot drift between endpoints.
type OrderView struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	VenueID         string          `json:"venue_id"`
	VenueName       string          `json:"venue_name,omitempty"`
	TotalAmount     string          `json:"total_amount"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	FulfillmentCode string          `json:"fulfillment_code,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Items           []OrderItemView `json:"items"`
}

func NewOrderView(order *models.Order) OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ID:              item.ID.String(),
			DrinkID:         item.DrinkID.String(),
			DrinkName:       item.DrinkName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
		})
	}
	return OrderView{
		ID:              order.ID.String(),
		CustomerID:      order.CustomerID.String(),
		VenueID:         order.VenueID.String(),
		VenueName:       order.VenueName,
		TotalAmount:     order.TotalAmount.StringFixed(2),
		PaymentMethod:   string(order.PaymentMethod),
		Status:          string(order.Status),
		PaymentIntentID: order.PaymentIntentID,
		FulfillmentCode: order.FulfillmentCode,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		CompletedAt:     order.CompletedAt,
		Items:           items,
	}
}

// ErrorResponse is the structured error body: a stable kind plus a
// human-readable detail.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeServiceError maps a service failure to its HTTP status and stable
// error kind. Unknown errors become opaque 500s.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		invalidTransition *models.InvalidTransitionError
		itemNotFound      *service.ItemNotFoundError
		malformedRef      *service.MalformedReferenceError
	)

	status := http.StatusInternalServerError
	kind := "internal"
	detail := "internal server error"

	switch {
	case errors.Is(err, service.ErrVenueNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrCodeNotFound):
		status, kind, detail = http.StatusNotFound, "not_found", err.Error()
	case errors.As(err, &itemNotFound):
		status, kind, detail = http.StatusNotFound, "not_found", err.Error()
	case errors.As(err, &malformedRef):
		status, kind, detail = http.StatusBadRequest, "malformed_reference", err.Error()
	case errors.As(err, &invalidTransition):
		status, kind, detail = http.StatusConflict, "invalid_transition", err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, kind, detail = http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, service.ErrWrongPaymentMethod),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		status, kind, detail = http.StatusBadRequest, "wrong_payment_method", err.Error()
	case errors.Is(err, service.ErrPayoutNotConfigured):
		status, kind, detail = http.StatusUnprocessableEntity, "payout_not_configured", err.Error()
	case errors.Is(err, service.ErrGatewayUnavailable),
		errors.Is(err, payments.ErrGatewayUnavailable):
		status, kind, detail = http.StatusBadGateway, "gateway_unavailable", service.ErrGatewayUnavailable.Error()
	default:
		log.Error("unhandled service error", slog.Any("error", err))
	}

	writeJSON(w, log, status, ErrorResponse{Error: ErrorBody{Kind: kind, Detail: detail}})
}
