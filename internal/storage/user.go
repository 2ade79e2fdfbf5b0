package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/domain/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserStorage describes access to account records. Only the payout-account
// cache is written here; everything else about accounts is managed elsewhere.
type UserStorage interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdatePayoutAccountStatus refreshes the cached onboarding flags for the
	// user holding the given payout account. Reports ErrUserNotFound when no
	// user holds the account.
	UpdatePayoutAccountStatus(ctx context.Context, accountID string, chargesEnabled, payoutsEnabled bool) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserStorage {
	return &userRepository{db: db}
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var (
		accountID sql.NullString
		status    sql.NullString
	)
	query := `SELECT id, email, role, payout_account_id, payout_account_status, payout_charges_enabled, payout_payouts_enabled
	          FROM users WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&user.ID, &user.Email, &user.Role, &accountID, &status, &user.PayoutChargesEnabled, &user.PayoutPayoutsEnabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PayoutAccountID = accountID.String
	user.PayoutAccountStatus = status.String
	return user, nil
}

func (r *userRepository) UpdatePayoutAccountStatus(ctx context.Context, accountID string, chargesEnabled, payoutsEnabled bool) error {
	status := "pending"
	if chargesEnabled {
		status = "active"
	}
	query := `UPDATE users
	          SET payout_charges_enabled = $1, payout_payouts_enabled = $2, payout_account_status = $3
	          WHERE payout_account_id = $4`
	res, err := r.db.ExecContext(ctx, query, chargesEnabled, payoutsEnabled, status, accountID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
