package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clubtab/clubtab/internal/jwt-new/jwtmiddleware"
	"github.com/clubtab/clubtab/internal/service"
)

// CreateOrderRequest is the order creation payload.
type CreateOrderRequest struct {
	VenueID       string                   `json:"venue_id" validate:"required"`
	PaymentMethod string                   `json:"payment_method" validate:"required,oneof=card cash"`
	Items         []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderItemRequest struct {
	DrinkID  string `json:"drink_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderResponse carries the order view plus, for card orders, the
// one-time client secret for completing the payment.
type CreateOrderResponse struct {
	Order        OrderView `json:"order"`
	ClientSecret string    `json:"client_secret,omitempty"`
}

var validate = validator.New()

// CreateOrderHandler handles POST /api/v1/orders.
func CreateOrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req CreateOrderRequest
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

		input := service.CreateOrderInput{
			VenueID:       req.VenueID,
			PaymentMethod: req.PaymentMethod,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, service.CreateOrderItemInput{
				DrinkID:  item.DrinkID,
				Quantity: item.Quantity,
			})
		}

		order, clientSecret, err := orders.CreateOrder(r.Context(), userID, input)
		if err != nil {
			logger.Error("failed to create order", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, CreateOrderResponse{
			Order:        NewOrderView(order),
			ClientSecret: clientSecret,
		})
	}
}

// GetOrderHandler handles GET /api/v1/orders/{id}.
func GetOrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := orders.GetOrder(r.Context(), userID, chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("failed to get order", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, NewOrderView(order))
	}
}

// MyOrdersHandler handles GET /api/v1/orders/me/history.
func MyOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MyOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("skip"))

		list, err := orders.ListMyOrders(r.Context(), userID, limit, offset)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		views := make([]OrderView, 0, len(list))
		for _, order := range list {
			views = append(views, NewOrderView(order))
		}
		writeJSON(w, logger, http.StatusOK, views)
	}
}
