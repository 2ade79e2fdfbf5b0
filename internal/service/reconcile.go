package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/payments"
	"github.com/clubtab/clubtab/internal/storage"
)

// ReconcileService applies verified gateway events to order and account
// state. The gateway delivers at least once, so every branch must be a no-op
// when replayed: events for unknown intents or already-advanced orders are
// swallowed and only real processing failures propagate (so delivery is
// retried).
type ReconcileService interface {
	HandleEvent(ctx context.Context, event payments.Event) error
}

type reconcileService struct {
	log       *slog.Logger
	db        *sql.DB
	orderRepo storage.OrderStorage
	userRepo  storage.UserStorage
}

func NewReconcileService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, userRepo storage.UserStorage) ReconcileService {
	return &reconcileService{
		log:       log,
		db:        db,
		orderRepo: orderRepo,
		userRepo:  userRepo,
	}
}

func (s *reconcileService) HandleEvent(ctx context.Context, event payments.Event) error {
	const op = "service.ReconcileService.HandleEvent"
	logger := s.log.With(slog.String("op", op))

	switch e := event.(type) {
	case payments.PaymentSucceeded:
		return s.applyPayment(ctx, logger, e.IntentID, true)
	case payments.PaymentFailed:
		return s.applyPayment(ctx, logger, e.IntentID, false)
	case payments.AccountUpdated:
		return s.applyAccountUpdate(ctx, logger, e)
	case payments.Unrecognized:
		logger.Info("ignoring unrecognized event", slog.String("type", e.Type))
		return nil
	default:
		logger.Info("ignoring unknown event")
		return nil
	}
}

// applyPayment advances an order out of pending_payment: to paid (assigning a
// fulfillment code) on success, to cancelled on failure. Orders in any later
// state and unknown intents are left untouched.
func (s *reconcileService) applyPayment(ctx context.Context, logger *slog.Logger, intentID string, succeeded bool) error {
	const op = "service.ReconcileService.applyPayment"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIntentIDTx(ctx, tx, intentID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			// Event for an intent outside this system; acknowledge and move on.
			logger.Info("no order for payment intent", slog.String("intentID", intentID))
			return nil
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if order.Status != models.StatusPendingPayment {
		// Replay of an already-applied event.
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}
		logger.Info("payment event already applied",
			slog.String("orderID", order.ID.String()),
			slog.String("status", string(order.Status)),
		)
		return nil
	}

	if succeeded {
		err = s.orderRepo.MarkPaidTx(ctx, tx, order.ID, uuid.NewString())
	} else {
		err = s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, models.StatusPendingPayment, models.StatusCancelled, nil)
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrStatusConflict) {
			// Lost a race with another transition; the winner's state stands.
			logger.Info("payment event lost transition race", slog.String("orderID", order.ID.String()))
			return nil
		}
		logger.Error("failed to apply payment event", slog.Any("error", err))
		return fmt.Errorf("%s: failed to apply payment event: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("payment event applied",
		slog.String("orderID", order.ID.String()),
		slog.Bool("succeeded", succeeded),
	)
	return nil
}

func (s *reconcileService) applyAccountUpdate(ctx context.Context, logger *slog.Logger, e payments.AccountUpdated) error {
	const op = "service.ReconcileService.applyAccountUpdate"

	err := s.userRepo.UpdatePayoutAccountStatus(ctx, e.AccountID, e.ChargesEnabled, e.PayoutsEnabled)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Info("no operator for payout account", slog.String("accountID", e.AccountID))
			return nil
		}
		logger.Error("failed to update payout account status", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update payout account status: %w", op, err)
	}

	logger.Info("payout account status updated",
		slog.String("accountID", e.AccountID),
		slog.Bool("chargesEnabled", e.ChargesEnabled),
	)
	return nil
}
