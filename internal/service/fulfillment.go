package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clubtab/clubtab/internal/domain/models"
	"github.com/clubtab/clubtab/internal/storage"
)

// FulfillmentService covers the staff-facing order operations: scanning
// fulfillment codes, explicit status updates, cash confirmation, and the
// venue order queue. Every mutation runs in a transaction that locks the
// order row and conditions the update on the currently stored status.
type FulfillmentService interface {
	// Scan locates an order by fulfillment code within the staff member's
	// venue. A paid card order advances to preparing; a cash order still
	// awaiting payment is returned unchanged for manual cash handling.
	Scan(ctx context.Context, staffUserID uuid.UUID, code string) (*models.Order, error)
	// UpdateStatus applies an explicit staff transition.
	UpdateStatus(ctx context.Context, staffUserID uuid.UUID, orderID string, target models.OrderStatus) (*models.Order, error)
	// ConfirmCash moves a pending cash order to paid.
	ConfirmCash(ctx context.Context, staffUserID uuid.UUID, orderID string) (*models.Order, error)
	// VenueOrders lists the staff member's venue queue, defaulting to orders
	// that need attention (paid, preparing, ready).
	VenueOrders(ctx context.Context, staffUserID uuid.UUID, statusFilter *models.OrderStatus) ([]*models.Order, error)
}

type fulfillmentService struct {
	log       *slog.Logger
	db        *sql.DB
	orderRepo storage.OrderStorage
	staffRepo storage.StaffStorage
}

func NewFulfillmentService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, staffRepo storage.StaffStorage) FulfillmentService {
	return &fulfillmentService{
		log:       log,
		db:        db,
		orderRepo: orderRepo,
		staffRepo: staffRepo,
	}
}

func (s *fulfillmentService) staffOf(ctx context.Context, userID uuid.UUID) (*models.Staff, error) {
	staff, err := s.staffRepo.GetActiveStaffByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrStaffNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return staff, nil
}

func (s *fulfillmentService) Scan(ctx context.Context, staffUserID uuid.UUID, code string) (*models.Order, error) {
	const op = "service.FulfillmentService.Scan"
	logger := s.log.With(slog.String("op", op), slog.String("staffUserID", staffUserID.String()))

	staff, err := s.staffOf(ctx, staffUserID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByCodeTx(ctx, tx, code, staff.VenueID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			// Codes from other venues look exactly like unknown codes.
			return nil, ErrCodeNotFound
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	// A cash order awaiting payment is surfaced untouched; the separate
	// cash-confirmation operation is the only way to mark it paid.
	if order.PaymentMethod == models.PaymentMethodCash && order.Status == models.StatusPendingPayment {
		if err := tx.Commit(); err != nil {
			logger.Error("failed to commit transaction", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}
		logger.Info("cash order scanned before confirmation", slog.String("orderID", order.ID.String()))
		return order, nil
	}

	if order.Status != models.StatusPaid {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return nil, &models.InvalidTransitionError{From: order.Status, To: models.StatusPreparing}
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, models.StatusPaid, models.StatusPreparing, nil); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrStatusConflict) {
			return nil, &models.InvalidTransitionError{From: order.Status, To: models.StatusPreparing}
		}
		logger.Error("failed to update status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update status: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = models.StatusPreparing
	logger.Info("order scanned", slog.String("orderID", order.ID.String()))
	return order, nil
}

func (s *fulfillmentService) UpdateStatus(ctx context.Context, staffUserID uuid.UUID, orderID string, target models.OrderStatus) (*models.Order, error) {
	const op = "service.FulfillmentService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.String("staffUserID", staffUserID.String()))

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, &MalformedReferenceError{Field: "order_id", Value: orderID}
	}
	staff, err := s.staffOf(ctx, staffUserID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, id, &staff.VenueID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if !models.CanStaffTransition(order.Status, target) {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return nil, &models.InvalidTransitionError{From: order.Status, To: target}
	}

	var completedAt *time.Time
	if target == models.StatusCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, order.Status, target, completedAt); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrStatusConflict) {
			return nil, &models.InvalidTransitionError{From: order.Status, To: target}
		}
		logger.Error("failed to update status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update status: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = target
	order.CompletedAt = completedAt
	logger.Info("order status updated",
		slog.String("orderID", order.ID.String()),
		slog.String("status", string(target)),
	)
	return order, nil
}

func (s *fulfillmentService) ConfirmCash(ctx context.Context, staffUserID uuid.UUID, orderID string) (*models.Order, error) {
	const op = "service.FulfillmentService.ConfirmCash"
	logger := s.log.With(slog.String("op", op), slog.String("staffUserID", staffUserID.String()))

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, &MalformedReferenceError{Field: "order_id", Value: orderID}
	}
	staff, err := s.staffOf(ctx, staffUserID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, id, &staff.VenueID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if order.PaymentMethod != models.PaymentMethodCash {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return nil, ErrWrongPaymentMethod
	}
	if order.Status != models.StatusPendingPayment {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return nil, &models.InvalidTransitionError{From: order.Status, To: models.StatusPaid}
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, order.ID, models.StatusPendingPayment, models.StatusPaid, nil); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(err, storage.ErrStatusConflict) {
			return nil, &models.InvalidTransitionError{From: order.Status, To: models.StatusPaid}
		}
		logger.Error("failed to update status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update status: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = models.StatusPaid
	logger.Info("cash payment confirmed", slog.String("orderID", order.ID.String()))
	return order, nil
}

func (s *fulfillmentService) VenueOrders(ctx context.Context, staffUserID uuid.UUID, statusFilter *models.OrderStatus) ([]*models.Order, error) {
	const op = "service.FulfillmentService.VenueOrders"

	staff, err := s.staffOf(ctx, staffUserID)
	if err != nil {
		return nil, err
	}

	statuses := []models.OrderStatus{models.StatusPaid, models.StatusPreparing, models.StatusReady}
	if statusFilter != nil {
		statuses = []models.OrderStatus{*statusFilter}
	}
	orders, err := s.orderRepo.ListOrdersByVenue(ctx, staff.VenueID, statuses)
	if err != nil {
		s.log.Error("failed to list venue orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list venue orders: %w", op, err)
	}
	return orders, nil
}
