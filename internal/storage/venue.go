package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/domain/models"
)

var ErrVenueNotFound = errors.New("venue not found")

// VenueStorage describes read access to the venue catalog.
type VenueStorage interface {
	// GetActiveVenueByID returns the venue only if it exists and is active.
	GetActiveVenueByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
}

type venueRepository struct {
	db *sql.DB
}

func NewVenueRepository(db *sql.DB) VenueStorage {
	return &venueRepository{db: db}
}

func (r *venueRepository) GetActiveVenueByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	venue := &models.Venue{}
	query := "SELECT id, owner_id, name, is_active FROM venues WHERE id = $1 AND is_active = TRUE"
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&venue.ID, &venue.OwnerID, &venue.Name, &venue.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return venue, nil
}
