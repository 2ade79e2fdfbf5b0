package service_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/payments"
	"github.com/clubtab/clubtab/internal/storage"
)

// In-memory fakes for the storage interfaces. Transaction arguments are
// ignored; the sqlmock database only supplies Begin/Commit/Rollback.

type fakeVenueRepo struct {
	venues map[uuid.UUID]*models.Venue
}

var _ storage.VenueStorage = (*fakeVenueRepo)(nil)

func newFakeVenueRepo() *fakeVenueRepo {
	return &fakeVenueRepo{venues: make(map[uuid.UUID]*models.Venue)}
}

func (f *fakeVenueRepo) GetActiveVenueByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	venue, ok := f.venues[id]
	if !ok || !venue.IsActive {
		return nil, storage.ErrVenueNotFound
	}
	return venue, nil
}

type fakeDrinkRepo struct {
	drinks map[uuid.UUID]*models.Drink
}

var _ storage.DrinkStorage = (*fakeDrinkRepo)(nil)

func newFakeDrinkRepo() *fakeDrinkRepo {
	return &fakeDrinkRepo{drinks: make(map[uuid.UUID]*models.Drink)}
}

func (f *fakeDrinkRepo) GetAvailableDrink(ctx context.Context, id, venueID uuid.UUID) (*models.Drink, error) {
	drink, ok := f.drinks[id]
	if !ok || drink.VenueID != venueID || !drink.IsAvailable {
		return nil, storage.ErrDrinkNotFound
	}
	return drink, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) UpdatePayoutAccountStatus(ctx context.Context, accountID string, chargesEnabled, payoutsEnabled bool) error {
	for _, user := range f.users {
		if user.PayoutAccountID == accountID {
			user.PayoutChargesEnabled = chargesEnabled
			user.PayoutPayoutsEnabled = payoutsEnabled
			if chargesEnabled {
				user.PayoutAccountStatus = "active"
			} else {
				user.PayoutAccountStatus = "pending"
			}
			return nil
		}
	}
	return storage.ErrUserNotFound
}

type fakeStaffRepo struct {
	staff map[uuid.UUID]*models.Staff // keyed by user id
}

var _ storage.StaffStorage = (*fakeStaffRepo)(nil)

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{staff: make(map[uuid.UUID]*models.Staff)}
}

func (f *fakeStaffRepo) GetActiveStaffByUserID(ctx context.Context, userID uuid.UUID) (*models.Staff, error) {
	staff, ok := f.staff[userID]
	if !ok || !staff.IsActive {
		return nil, storage.ErrStaffNotFound
	}
	return staff, nil
}

type fakeOrderRepo struct {
	orders  map[uuid.UUID]*models.Order
	created int
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	stored := *order
	f.orders[order.ID] = &stored
	f.created++
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, venueID *uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	if venueID != nil && order.VenueID != *venueID {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) LockOrderByIntentIDTx(ctx context.Context, tx *sql.Tx, intentID string) (*models.Order, error) {
	for _, order := range f.orders {
		if order.PaymentIntentID == intentID {
			return order, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) LockOrderByCodeTx(ctx context.Context, tx *sql.Tx, code string, venueID uuid.UUID) (*models.Order, error) {
	for _, order := range f.orders {
		if order.FulfillmentCode == code && order.VenueID == venueID {
			return order, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to models.OrderStatus, completedAt *time.Time) error {
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return storage.ErrStatusConflict
	}
	order.Status = to
	if completedAt != nil {
		order.CompletedAt = completedAt
	}
	return nil
}

func (f *fakeOrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, code string) error {
	order, ok := f.orders[id]
	if !ok || order.Status != models.StatusPendingPayment {
		return storage.ErrStatusConflict
	}
	order.Status = models.StatusPaid
	if order.FulfillmentCode == "" {
		order.FulfillmentCode = code
	}
	return nil
}

func (f *fakeOrderRepo) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	var result []*models.Order
	for _, order := range f.orders {
		if order.CustomerID == customerID {
			result = append(result, order)
		}
	}
	return result, nil
}

func (f *fakeOrderRepo) ListOrdersByVenue(ctx context.Context, venueID uuid.UUID, statuses []models.OrderStatus) ([]*models.Order, error) {
	var result []*models.Order
	for _, order := range f.orders {
		if order.VenueID != venueID {
			continue
		}
		for _, s := range statuses {
			if order.Status == s {
				result = append(result, order)
				break
			}
		}
	}
	return result, nil
}

type fakeGateway struct {
	intent   *payments.Intent
	err      error
	calls    int
	lastReq  payments.IntentRequest
	verified payments.Event
}

var _ payments.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) CreateIntent(ctx context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func (f *fakeGateway) VerifyAndParseEvent(payload []byte, sigHeader string) (payments.Event, error) {
	return f.verified, nil
}
