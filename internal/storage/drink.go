package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/domain/models"
)

var ErrDrinkNotFound = errors.New("drink not found")

// DrinkStorage describes read access to the drink catalog.
type DrinkStorage interface {
	// GetAvailableDrink returns the drink only if it belongs to the venue and
	// is marked available; everything else reports ErrDrinkNotFound.
	GetAvailableDrink(ctx context.Context, id, venueID uuid.UUID) (*models.Drink, error)
}

type drinkRepository struct {
	db *sql.DB
}

func NewDrinkRepository(db *sql.DB) DrinkStorage {
	return &drinkRepository{db: db}
}

func (r *drinkRepository) GetAvailableDrink(ctx context.Context, id, venueID uuid.UUID) (*models.Drink, error) {
	drink := &models.Drink{}
	query := `SELECT id, venue_id, name, price, is_available
	          FROM drinks
	          WHERE id = $1 AND venue_id = $2 AND is_available = TRUE`
	row := r.db.QueryRowContext(ctx, query, id, venueID)
	if err := row.Scan(&drink.ID, &drink.VenueID, &drink.Name, &drink.Price, &drink.IsAvailable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDrinkNotFound
		}
		return nil, err
	}
	return drink, nil
}
