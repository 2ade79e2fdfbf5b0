package models

import "github.com/google/uuid"

// Venue is the operator-owned establishment selling drinks. Orders only
// reference active venues; the rest of venue management lives elsewhere.
type Venue struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	Name     string
	IsActive bool
}
