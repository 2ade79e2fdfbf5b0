package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/payments"
	"github.com/clubtab/clubtab/internal/storage"
)

// OrderService creates orders and serves order reads.
type OrderService interface {
	// CreateOrder validates and prices the request, creates a gateway intent
	// for card orders, and persists the order atomically. The returned client
	// secret is non-empty for card orders only.
	CreateOrder(ctx context.Context, customerID uuid.UUID, input CreateOrderInput) (*models.Order, string, error)
	GetOrder(ctx context.Context, requesterID uuid.UUID, orderID string) (*models.Order, error)
	ListMyOrders(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Order, error)
}

// CreateOrderInput carries raw identifiers from the transport layer; they are
// parsed and validated here so malformed references fail before any I/O.
type CreateOrderInput struct {
	VenueID       string
	PaymentMethod string
	Items         []CreateOrderItemInput
}

type CreateOrderItemInput struct {
	DrinkID  string
	Quantity int
}

type orderService struct {
	log           *slog.Logger
	db            *sql.DB
	orderRepo     storage.OrderStorage
	venueRepo     storage.VenueStorage
	drinkRepo     storage.DrinkStorage
	userRepo      storage.UserStorage
	staffRepo     storage.StaffStorage
	gateway       payments.Gateway
	currency      string
	intentTimeout time.Duration
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	venueRepo storage.VenueStorage,
	drinkRepo storage.DrinkStorage,
	userRepo storage.UserStorage,
	staffRepo storage.StaffStorage,
	gateway payments.Gateway,
	currency string,
	intentTimeout time.Duration,
) OrderService {
	return &orderService{
		log:           log,
		db:            db,
		orderRepo:     orderRepo,
		venueRepo:     venueRepo,
		drinkRepo:     drinkRepo,
		userRepo:      userRepo,
		staffRepo:     staffRepo,
		gateway:       gateway,
		currency:      currency,
		intentTimeout: intentTimeout,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, customerID uuid.UUID, input CreateOrderInput) (*models.Order, string, error) {
	const op = "service.OrderService.CreateOrder"
	logger := s.log.With(slog.String("op", op), slog.String("customerID", customerID.String()))
	logger.Info("creating order", slog.Int("items", len(input.Items)))

	method := models.PaymentMethod(input.PaymentMethod)
	if !method.Valid() {
		return nil, "", ErrInvalidPaymentMethod
	}

	venueID, err := uuid.Parse(input.VenueID)
	if err != nil {
		return nil, "", &MalformedReferenceError{Field: "venue_id", Value: input.VenueID}
	}

	venue, err := s.venueRepo.GetActiveVenueByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, storage.ErrVenueNotFound) {
			return nil, "", ErrVenueNotFound
		}
		logger.Error("failed to get venue", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to get venue: %w", op, err)
	}

	items, total, err := s.priceItems(ctx, venue.ID, input.Items)
	if err != nil {
		return nil, "", err
	}

	// The timestamp is fixed here and persisted as-is, so the creation
	// response and every later read agree.
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    customerID,
		VenueID:       venue.ID,
		VenueName:     venue.Name,
		TotalAmount:   total,
		PaymentMethod: method,
		Status:        models.StatusPendingPayment,
		CreatedAt:     time.Now().UTC(),
		Items:         items,
	}
	for _, item := range items {
		item.OrderID = order.ID
	}

	var clientSecret string
	switch method {
	case models.PaymentMethodCard:
		secret, err := s.createIntent(ctx, logger, venue, order)
		if err != nil {
			return nil, "", err
		}
		clientSecret = secret
	case models.PaymentMethodCash:
		// Cash orders carry their fulfillment code from the start so staff
		// can surface them for manual collection.
		order.FulfillmentCode = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	if err := s.orderRepo.CreateOrderTx(ctx, tx, order); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order created",
		slog.String("orderID", order.ID.String()),
		slog.String("total", order.TotalAmount.StringFixed(2)),
		slog.String("method", string(method)),
	)
	return order, clientSecret, nil
}

// priceItems validates every line against the live catalog and computes the
// total. Prices are snapshot per line; the total is rounded half-even to two
// decimals, which keeps it deterministic regardless of item order.
func (s *orderService) priceItems(ctx context.Context, venueID uuid.UUID, inputs []CreateOrderItemInput) ([]*models.OrderItem, decimal.Decimal, error) {
	const op = "service.OrderService.priceItems"

	total := decimal.Zero
	items := make([]*models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		drinkID, err := uuid.Parse(in.DrinkID)
		if err != nil {
			return nil, decimal.Zero, &MalformedReferenceError{Field: "drink_id", Value: in.DrinkID}
		}
		drink, err := s.drinkRepo.GetAvailableDrink(ctx, drinkID, venueID)
		if err != nil {
			if errors.Is(err, storage.ErrDrinkNotFound) {
				return nil, decimal.Zero, &ItemNotFoundError{DrinkID: in.DrinkID}
			}
			return nil, decimal.Zero, fmt.Errorf("%s: failed to get drink: %w", op, err)
		}
		total = total.Add(drink.Price.Mul(decimal.NewFromInt(int64(in.Quantity))))
		items = append(items, &models.OrderItem{
			ID:              uuid.New(),
			DrinkID:         drink.ID,
			DrinkName:       drink.Name,
			Quantity:        in.Quantity,
			PriceAtPurchase: drink.Price,
		})
	}
	return items, total.RoundBank(2), nil
}

func (s *orderService) createIntent(ctx context.Context, logger *slog.Logger, venue *models.Venue, order *models.Order) (string, error) {
	const op = "service.OrderService.createIntent"

	owner, err := s.userRepo.GetUserByID(ctx, venue.OwnerID)
	if err != nil {
		logger.Error("failed to get venue owner", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get venue owner: %w", op, err)
	}
	// Fail before touching the gateway when the operator cannot receive
	// direct charges yet.
	if owner.PayoutAccountID == "" || !owner.PayoutChargesEnabled {
		return "", ErrPayoutNotConfigured
	}

	ictx, cancel := context.WithTimeout(ctx, s.intentTimeout)
	defer cancel()

	intent, err := s.gateway.CreateIntent(ictx, payments.IntentRequest{
		Amount:   order.TotalAmount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: s.currency,
		Metadata: map[string]string{
			"order_id":    order.ID.String(),
			"customer_id": order.CustomerID.String(),
			"venue_id":    order.VenueID.String(),
		},
		DestinationAccount: owner.PayoutAccountID,
	})
	if err != nil {
		logger.Error("failed to create payment intent", slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	order.PaymentIntentID = intent.ID
	return intent.ClientSecret, nil
}

func (s *orderService) GetOrder(ctx context.Context, requesterID uuid.UUID, orderID string) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, &MalformedReferenceError{Field: "order_id", Value: orderID}
	}
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		s.log.Error("failed to get order", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if order.CustomerID == requesterID {
		return order, nil
	}
	// Staff of the order's venue may also view it.
	staff, err := s.staffRepo.GetActiveStaffByUserID(ctx, requesterID)
	if err == nil && staff.VenueID == order.VenueID {
		return order, nil
	}
	return nil, ErrForbidden
}

func (s *orderService) ListMyOrders(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	const op = "service.OrderService.ListMyOrders"

	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	orders, err := s.orderRepo.ListOrdersByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return orders, nil
}
