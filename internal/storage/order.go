package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clubtab/clubtab/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when a conditional status update matched
	// no row: the stored status no longer equals the expected one.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderStorage describes persistence for orders and their line items.
// Transition methods are tx-scoped: callers lock the row first, compare the
// stored status, and apply a conditional update inside the same transaction.
type OrderStorage interface {
	// CreateOrderTx inserts the order header and all line items; all or nothing.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// LockOrderByIDTx loads an order by id with a row lock for the duration
	// of the transaction. If venueID is non-nil the order must belong to that
	// venue; a mismatch reports ErrOrderNotFound.
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, venueID *uuid.UUID) (*models.Order, error)
	LockOrderByIntentIDTx(ctx context.Context, tx *sql.Tx, intentID string) (*models.Order, error)
	// LockOrderByCodeTx matches a fulfillment code within a single venue only.
	LockOrderByCodeTx(ctx context.Context, tx *sql.Tx, code string, venueID uuid.UUID) (*models.Order, error)
	// UpdateStatusTx moves an order to a new status conditioned on the
	// currently stored one; ErrStatusConflict when the precondition fails.
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to models.OrderStatus, completedAt *time.Time) error
	// MarkPaidTx sets status to paid and assigns the fulfillment code,
	// conditioned on the order still being in pending_payment.
	MarkPaidTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, code string) error
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Order, error)
	ListOrdersByVenue(ctx context.Context, venueID uuid.UUID, statuses []models.OrderStatus) ([]*models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.customer_id, o.venue_id, o.total_amount, o.payment_method, o.status,
	o.payment_intent_id, o.fulfillment_code, o.created_at, o.updated_at, o.completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner, withVenueName bool) (*models.Order, error) {
	order := &models.Order{}
	var (
		intentID  sql.NullString
		code      sql.NullString
		venueName sql.NullString
		updatedAt sql.NullTime
		completed sql.NullTime
	)
	dest := []interface{}{
		&order.ID, &order.CustomerID, &order.VenueID, &order.TotalAmount,
		&order.PaymentMethod, &order.Status, &intentID, &code,
		&order.CreatedAt, &updatedAt, &completed,
	}
	if withVenueName {
		dest = append(dest, &venueName)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	order.PaymentIntentID = intentID.String
	order.FulfillmentCode = code.String
	order.VenueName = venueName.String
	if updatedAt.Valid {
		order.UpdatedAt = &updatedAt.Time
	}
	if completed.Valid {
		order.CompletedAt = &completed.Time
	}
	return order, nil
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	query := `INSERT INTO orders (id, customer_id, venue_id, total_amount, payment_method, status, payment_intent_id, fulfillment_code, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.ExecContext(ctx, query,
		order.ID, order.CustomerID, order.VenueID, order.TotalAmount,
		order.PaymentMethod, order.Status,
		nullable(order.PaymentIntentID), nullable(order.FulfillmentCode),
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, drink_id, quantity, price_at_purchase)
	              VALUES ($1, $2, $3, $4, $5)`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID, order.ID, item.DrinkID, item.Quantity, item.PriceAtPurchase,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + `, v.name
	          FROM orders o
	          JOIN venues v ON o.venue_id = v.id
	          WHERE o.id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, venueID *uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	args := []interface{}{id}
	if venueID != nil {
		query += ` AND o.venue_id = $2`
		args = append(args, *venueID)
	}
	query += ` FOR UPDATE`
	return r.lockOrder(ctx, tx, query, args...)
}

func (r *orderRepository) LockOrderByIntentIDTx(ctx context.Context, tx *sql.Tx, intentID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.payment_intent_id = $1 FOR UPDATE`
	return r.lockOrder(ctx, tx, query, intentID)
}

func (r *orderRepository) LockOrderByCodeTx(ctx context.Context, tx *sql.Tx, code string, venueID uuid.UUID) (*models.Order, error) {
	// The venue filter is part of the lookup: a code issued by another venue
	// must behave exactly like a code that does not exist.
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.fulfillment_code = $1 AND o.venue_id = $2 FOR UPDATE`
	return r.lockOrder(ctx, tx, query, code, venueID)
}

func (r *orderRepository) lockOrder(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx, query, args...), false)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" { // lock_not_available
			return nil, fmt.Errorf("order row is locked, please try again: %w", err)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.loadItemsTx(ctx, tx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to models.OrderStatus, completedAt *time.Time) error {
	query := `UPDATE orders
	          SET status = $1, updated_at = NOW(), completed_at = COALESCE($2, completed_at)
	          WHERE id = $3 AND status = $4`
	res, err := tx.ExecContext(ctx, query, to, completedAt, id, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, code string) error {
	query := `UPDATE orders
	          SET status = $1, fulfillment_code = COALESCE(fulfillment_code, $2), updated_at = NOW()
	          WHERE id = $3 AND status = $4`
	res, err := tx.ExecContext(ctx, query, models.StatusPaid, code, id, models.StatusPendingPayment)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *orderRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + `, v.name
	          FROM orders o
	          JOIN venues v ON o.venue_id = v.id
	          WHERE o.customer_id = $1
	          ORDER BY o.created_at DESC
	          LIMIT $2 OFFSET $3`
	return r.listOrders(ctx, query, customerID, limit, offset)
}

func (r *orderRepository) ListOrdersByVenue(ctx context.Context, venueID uuid.UUID, statuses []models.OrderStatus) ([]*models.Order, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	query := `SELECT ` + orderColumns + `, v.name
	          FROM orders o
	          JOIN venues v ON o.venue_id = v.id
	          WHERE o.venue_id = $1 AND o.status = ANY($2)
	          ORDER BY o.created_at ASC`
	return r.listOrders(ctx, query, venueID, pq.Array(values))
}

func (r *orderRepository) listOrders(ctx context.Context, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows, true)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

const itemsQuery = `SELECT i.id, i.order_id, i.drink_id, d.name, i.quantity, i.price_at_purchase
	FROM order_items i
	JOIN drinks d ON i.drink_id = d.id
	WHERE i.order_id = $1`

func (r *orderRepository) loadItems(ctx context.Context, order *models.Order) error {
	rows, err := r.db.QueryContext(ctx, itemsQuery, order.ID)
	if err != nil {
		return err
	}
	return scanItems(rows, order)
}

func (r *orderRepository) loadItemsTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	rows, err := tx.QueryContext(ctx, itemsQuery, order.ID)
	if err != nil {
		return err
	}
	return scanItems(rows, order)
}

func scanItems(rows *sql.Rows, order *models.Order) error {
	defer rows.Close()
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.DrinkID, &item.DrinkName, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
