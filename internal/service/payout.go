package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/storage"
)

// PayoutService exposes the cached payout-account state of an operator. The
// cache is written by the webhook reconciler on account.updated events.
type PayoutService interface {
	Status(ctx context.Context, operatorID uuid.UUID) (*PayoutStatus, error)
}

type PayoutStatus struct {
	AccountID      string `json:"account_id,omitempty"`
	AccountStatus  string `json:"account_status,omitempty"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

type payoutService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
}

func NewPayoutService(log *slog.Logger, userRepo storage.UserStorage) PayoutService {
	return &payoutService{log: log, userRepo: userRepo}
}

func (s *payoutService) Status(ctx context.Context, operatorID uuid.UUID) (*PayoutStatus, error) {
	const op = "service.PayoutService.Status"

	user, err := s.userRepo.GetUserByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrForbidden
		}
		s.log.Error("failed to get user", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	return &PayoutStatus{
		AccountID:      user.PayoutAccountID,
		AccountStatus:  user.PayoutAccountStatus,
		ChargesEnabled: user.PayoutChargesEnabled,
		PayoutsEnabled: user.PayoutPayoutsEnabled,
	}, nil
}
