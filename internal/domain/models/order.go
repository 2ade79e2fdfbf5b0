package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

// Valid reports whether the value is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of an order. The persisted row is the
// single source of truth; transitions only move forward through the table
// below and are always checked against the currently stored value.
type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
)

// Valid reports whether the value is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// transitions is the full state machine, including the payment transitions
// driven by the gateway reconciler and cash confirmation.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusCompleted, StatusCancelled},
}

// staffTransitions is the subset a staff member may trigger with an explicit
// status update. Transitions out of pending_payment belong to the webhook
// reconciler and the cash-confirmation operation only.
var staffTransitions = map[OrderStatus][]OrderStatus{
	StatusPaid:      {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether the state machine allows moving from one
// status to another, regardless of who triggers it.
func CanTransition(from, to OrderStatus) bool {
	return contains(transitions[from], to)
}

// CanStaffTransition reports whether a staff explicit update may move an
// order from one status to another.
func CanStaffTransition(from, to OrderStatus) bool {
	return contains(staffTransitions[from], to)
}

func contains(allowed []OrderStatus, to OrderStatus) bool {
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a rejected status transition, carrying both
// the currently stored and the requested status.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// Order is one purchase attempt by one customer at one venue. The total is
// fixed at creation time and never recomputed; the payment intent reference
// is set only for card orders with a successfully created gateway intent.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	VenueID         uuid.UUID       `json:"venue_id"`
	VenueName       string          `json:"venue_name,omitempty"` // filled via JOIN with venues
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Status          OrderStatus     `json:"status"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"` // empty until a card intent exists
	FulfillmentCode string          `json:"fulfillment_code,omitempty"`  // set at creation for cash, on payment for card
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Items           []*OrderItem    `json:"items"`
}

// OrderItem is one line of an order. PriceAtPurchase is a snapshot of the
// drink price at order creation and is never updated afterwards.
type OrderItem struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	DrinkID         uuid.UUID       `json:"drink_id"`
	DrinkName       string          `json:"drink_name,omitempty"` // filled via JOIN with drinks
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}
