package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/domain/models"
)

var ErrStaffNotFound = errors.New("staff membership not found")

// StaffStorage describes read access to venue staff memberships.
type StaffStorage interface {
	// GetActiveStaffByUserID returns the active membership of a user, or
	// ErrStaffNotFound when the user is not staff anywhere.
	GetActiveStaffByUserID(ctx context.Context, userID uuid.UUID) (*models.Staff, error)
}

type staffRepository struct {
	db *sql.DB
}

func NewStaffRepository(db *sql.DB) StaffStorage {
	return &staffRepository{db: db}
}

func (r *staffRepository) GetActiveStaffByUserID(ctx context.Context, userID uuid.UUID) (*models.Staff, error) {
	staff := &models.Staff{}
	query := "SELECT id, user_id, venue_id, is_active FROM staff WHERE user_id = $1 AND is_active = TRUE"
	row := r.db.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&staff.ID, &staff.UserID, &staff.VenueID, &staff.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return staff, nil
}
