package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/payments"
	"github.com/clubtab/clubtab/internal/service"
)

// orderEnv holds a wired order service with one active venue, its operator
// owner (charges enabled) and two available drinks.
type orderEnv struct {
	svc       service.OrderService
	mock      sqlmock.Sqlmock
	gateway   *fakeGateway
	orderRepo *fakeOrderRepo
	userRepo  *fakeUserRepo
	staffRepo *fakeStaffRepo
	venue     *models.Venue
	owner     *models.User
	mojito    *models.Drink
	negroni   *models.Drink
}

func newOrderEnv(t *testing.T) *orderEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	owner := &models.User{
		ID:                   uuid.New(),
		Email:                "owner@example.com",
		Role:                 models.RoleOperator,
		PayoutAccountID:      "acct_test_1",
		PayoutAccountStatus:  "active",
		PayoutChargesEnabled: true,
		PayoutPayoutsEnabled: true,
	}
	venue := &models.Venue{
		ID:       uuid.New(),
		OwnerID:  owner.ID,
		Name:     "The Velvet Room",
		IsActive: true,
	}
	mojito := &models.Drink{
		ID:          uuid.New(),
		VenueID:     venue.ID,
		Name:        "Mojito",
		Price:       decimal.RequireFromString("7.75"),
		IsAvailable: true,
	}
	negroni := &models.Drink{
		ID:          uuid.New(),
		VenueID:     venue.ID,
		Name:        "Negroni",
		Price:       decimal.RequireFromString("10.00"),
		IsAvailable: true,
	}

	venueRepo := newFakeVenueRepo()
	venueRepo.venues[venue.ID] = venue
	drinkRepo := newFakeDrinkRepo()
	drinkRepo.drinks[mojito.ID] = mojito
	drinkRepo.drinks[negroni.ID] = negroni
	userRepo := newFakeUserRepo()
	userRepo.users[owner.ID] = owner
	staffRepo := newFakeStaffRepo()
	orderRepo := newFakeOrderRepo()
	gateway := &fakeGateway{intent: &payments.Intent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret"}}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := service.NewOrderService(logger, db, orderRepo, venueRepo, drinkRepo, userRepo, staffRepo, gateway, "usd", 10*time.Second)

	return &orderEnv{
		svc:       svc,
		mock:      mock,
		gateway:   gateway,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		staffRepo: staffRepo,
		venue:     venue,
		owner:     owner,
		mojito:    mojito,
		negroni:   negroni,
	}
}

func TestOrderService_CreateOrder_Card(t *testing.T) {
	env := newOrderEnv(t)
	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	customerID := uuid.New()
	// 2 x 7.75 + 1 x 10.00 = 25.50
	order, clientSecret, err := env.svc.CreateOrder(context.Background(), customerID, service.CreateOrderInput{
		VenueID:       env.venue.ID.String(),
		PaymentMethod: "card",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.mojito.ID.String(), Quantity: 2},
			{DrinkID: env.negroni.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "25.50", order.TotalAmount.StringFixed(2))
	assert.Equal(t, models.StatusPendingPayment, order.Status)
	assert.Equal(t, "pi_test_1", order.PaymentIntentID)
	assert.Empty(t, order.FulfillmentCode, "card orders get their code on payment, not at creation")
	assert.Equal(t, "pi_test_1_secret", clientSecret)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "7.75", order.Items[0].PriceAtPurchase.StringFixed(2))

	// The gateway is charged in cents with the operator account as
	// destination.
	assert.Equal(t, int64(2550), env.gateway.lastReq.Amount)
	assert.Equal(t, "usd", env.gateway.lastReq.Currency)
	assert.Equal(t, env.owner.PayoutAccountID, env.gateway.lastReq.DestinationAccount)
	assert.Equal(t, order.ID.String(), env.gateway.lastReq.Metadata["order_id"])

	assert.Equal(t, 1, env.orderRepo.created)
	// The persisted row carries the exact timestamp the caller sees.
	assert.False(t, order.CreatedAt.IsZero())
	assert.Equal(t, order.CreatedAt, env.orderRepo.orders[order.ID].CreatedAt)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestOrderService_CreateOrder_Cash(t *testing.T) {
	env := newOrderEnv(t)
	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	order, clientSecret, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       env.venue.ID.String(),
		PaymentMethod: "cash",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.negroni.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingPayment, order.Status)
	assert.NotEmpty(t, order.FulfillmentCode, "cash orders carry a code from creation")
	assert.Empty(t, order.PaymentIntentID)
	assert.Empty(t, clientSecret)
	assert.Equal(t, 0, env.gateway.calls, "cash orders never touch the gateway")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestOrderService_CreateOrder_TotalIndependentOfItemOrder(t *testing.T) {
	forward := newOrderEnv(t)
	forward.mock.ExpectBegin()
	forward.mock.ExpectCommit()
	orderA, _, err := forward.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       forward.venue.ID.String(),
		PaymentMethod: "cash",
		Items: []service.CreateOrderItemInput{
			{DrinkID: forward.mojito.ID.String(), Quantity: 3},
			{DrinkID: forward.negroni.ID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)

	reversed := newOrderEnv(t)
	reversed.mock.ExpectBegin()
	reversed.mock.ExpectCommit()
	orderB, _, err := reversed.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       reversed.venue.ID.String(),
		PaymentMethod: "cash",
		Items: []service.CreateOrderItemInput{
			{DrinkID: reversed.negroni.ID.String(), Quantity: 2},
			{DrinkID: reversed.mojito.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.True(t, orderA.TotalAmount.Equal(orderB.TotalAmount),
		"total must not depend on line order: %s vs %s", orderA.TotalAmount, orderB.TotalAmount)
}

func TestOrderService_CreateOrder_UnavailableItem(t *testing.T) {
	env := newOrderEnv(t)
	env.mojito.IsAvailable = false

	_, _, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       env.venue.ID.String(),
		PaymentMethod: "card",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.negroni.ID.String(), Quantity: 1},
			{DrinkID: env.mojito.ID.String(), Quantity: 1},
		},
	})
	var itemErr *service.ItemNotFoundError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, env.mojito.ID.String(), itemErr.DrinkID)

	assert.Equal(t, 0, env.orderRepo.created, "no order may persist when any line fails")
	assert.Equal(t, 0, env.gateway.calls)
	assert.NoError(t, env.mock.ExpectationsWereMet(), "no transaction should have started")
}

func TestOrderService_CreateOrder_DrinkFromAnotherVenue(t *testing.T) {
	env := newOrderEnv(t)
	env.mojito.VenueID = uuid.New()

	_, _, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       env.venue.ID.String(),
		PaymentMethod: "cash",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.mojito.ID.String(), Quantity: 1},
		},
	})
	var itemErr *service.ItemNotFoundError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 0, env.orderRepo.created)
}

func TestOrderService_CreateOrder_MalformedVenueID(t *testing.T) {
	env := newOrderEnv(t)

	_, _, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       "not-a-uuid",
		PaymentMethod: "card",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.mojito.ID.String(), Quantity: 1},
		},
	})
	var refErr *service.MalformedReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "venue_id", refErr.Field)
	assert.Equal(t, "invalid venue_id format: not-a-uuid", refErr.Error())
}

func TestOrderService_CreateOrder_UnknownVenue(t *testing.T) {
	env := newOrderEnv(t)

	_, _, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       uuid.NewString(),
		PaymentMethod: "card",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.mojito.ID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, service.ErrVenueNotFound)
}

func TestOrderService_CreateOrder_InvalidPaymentMethod(t *testing.T) {
	env := newOrderEnv(t)

	_, _, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       env.venue.ID.String(),
		PaymentMethod: "bitcoin",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.mojito.ID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, service.ErrInvalidPaymentMethod)
}

func TestOrderService_CreateOrder_PayoutNotConfigured(t *testing.T) {
	env := newOrderEnv(t)
	env.owner.PayoutChargesEnabled = false

	_, _, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       env.venue.ID.String(),
		PaymentMethod: "card",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.mojito.ID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, service.ErrPayoutNotConfigured)
	assert.Equal(t, 0, env.gateway.calls, "the gateway must not be called for an unconfigured operator")
	assert.Equal(t, 0, env.orderRepo.created)
}

func TestOrderService_CreateOrder_GatewayDown(t *testing.T) {
	env := newOrderEnv(t)
	env.gateway.err = errors.New("connection refused")

	_, _, err := env.svc.CreateOrder(context.Background(), uuid.New(), service.CreateOrderInput{
		VenueID:       env.venue.ID.String(),
		PaymentMethod: "card",
		Items: []service.CreateOrderItemInput{
			{DrinkID: env.mojito.ID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, service.ErrGatewayUnavailable)
	assert.Equal(t, 0, env.orderRepo.created, "a failed intent must leave nothing behind")
}

func TestOrderService_GetOrder_Access(t *testing.T) {
	env := newOrderEnv(t)

	customerID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    customerID,
		VenueID:       env.venue.ID,
		TotalAmount:   decimal.RequireFromString("10.00"),
		PaymentMethod: models.PaymentMethodCash,
		Status:        models.StatusPaid,
	}
	env.orderRepo.orders[order.ID] = order

	// The owning customer can read it.
	got, err := env.svc.GetOrder(context.Background(), customerID, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Staff of the same venue can read it.
	staffUserID := uuid.New()
	env.staffRepo.staff[staffUserID] = &models.Staff{
		ID:       uuid.New(),
		UserID:   staffUserID,
		VenueID:  env.venue.ID,
		IsActive: true,
	}
	_, err = env.svc.GetOrder(context.Background(), staffUserID, order.ID.String())
	assert.NoError(t, err)

	// Staff of a different venue cannot.
	otherStaffID := uuid.New()
	env.staffRepo.staff[otherStaffID] = &models.Staff{
		ID:       uuid.New(),
		UserID:   otherStaffID,
		VenueID:  uuid.New(),
		IsActive: true,
	}
	_, err = env.svc.GetOrder(context.Background(), otherStaffID, order.ID.String())
	assert.ErrorIs(t, err, service.ErrForbidden)

	// A stranger cannot.
	_, err = env.svc.GetOrder(context.Background(), uuid.New(), order.ID.String())
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	env := newOrderEnv(t)

	_, err := env.svc.GetOrder(context.Background(), uuid.New(), uuid.NewString())
	assert.ErrorIs(t, err, service.ErrOrderNotFound)

	_, err = env.svc.GetOrder(context.Background(), uuid.New(), "garbage")
	var refErr *service.MalformedReferenceError
	assert.ErrorAs(t, err, &refErr)
}

func TestOrderService_ListMyOrders_OnlyOwn(t *testing.T) {
	env := newOrderEnv(t)

	mine := uuid.New()
	for i := 0; i < 3; i++ {
		id := uuid.New()
		env.orderRepo.orders[id] = &models.Order{ID: id, CustomerID: mine, VenueID: env.venue.ID, Status: models.StatusCompleted}
	}
	otherID := uuid.New()
	env.orderRepo.orders[otherID] = &models.Order{ID: otherID, CustomerID: uuid.New(), VenueID: env.venue.ID, Status: models.StatusCompleted}

	orders, err := env.svc.ListMyOrders(context.Background(), mine, 10, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
	for _, o := range orders {
		assert.Equal(t, mine, o.CustomerID)
	}
}
