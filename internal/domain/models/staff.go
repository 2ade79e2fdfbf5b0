package models

import "github.com/google/uuid"

// Staff is an active venue membership of a user. Scans and status updates
// are always scoped to the staff member's venue.
type Staff struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	VenueID  uuid.UUID
	IsActive bool
}
