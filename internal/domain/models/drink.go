package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Drink is a menu item of a venue. Price is the live catalog price; orders
// snapshot it into OrderItem.PriceAtPurchase at creation time.
type Drink struct {
	ID          uuid.UUID
	VenueID     uuid.UUID
	Name        string
	Price       decimal.Decimal
	IsAvailable bool
}
