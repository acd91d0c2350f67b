package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/repository"
	"gorm.io/gorm"
)

// Clock returns the current time; replaced in tests
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Actors recorded in status history when no user is authenticated
const (
	ActorPortal = "portal"
	ActorSystem = "system"
)

// transitioner applies guarded status changes and records them in the history table
type transitioner struct {
	db          *gorm.DB
	orderRepo   *repository.OrderRepository
	historyRepo *repository.OrderStatusHistoryRepository
}

func newTransitioner(db *gorm.DB, orderRepo *repository.OrderRepository, historyRepo *repository.OrderStatusHistoryRepository) *transitioner {
	return &transitioner{db: db, orderRepo: orderRepo, historyRepo: historyRepo}
}

func statusIn(status domain.OrderStatus, set []domain.OrderStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// apply moves order to `to` if its persisted status is in `from`. The update is conditional on
// the persisted status, so of two concurrent identical requests only one succeeds and the other
// receives a TransitionError. On success order is updated in place.
func (t *transitioner) apply(ctx context.Context, order *domain.Order, from []domain.OrderStatus, to domain.OrderStatus, actor, notes string, at time.Time, fields map[string]interface{}) error {
	if !statusIn(order.Status, from) {
		return invalidTransition(order.Status)
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return t.applyTx(ctx, tx, order, from, to, actor, notes, at, fields)
	})
	if err != nil {
		return err
	}

	order.Status = to
	order.UpdatedAt = at
	return nil
}

// applyTx is apply inside a caller-owned transaction; order is not modified
func (t *transitioner) applyTx(ctx context.Context, tx *gorm.DB, order *domain.Order, from []domain.OrderStatus, to domain.OrderStatus, actor, notes string, at time.Time, fields map[string]interface{}) error {
	orders := t.orderRepo.WithTx(tx)
	ok, err := orders.TransitionStatus(ctx, order.ID, from, to, at, fields)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if !ok {
		current, err := orders.GetStatus(ctx, order.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to read order status: %w", err)
		}
		return invalidTransition(current)
	}

	previous := order.Status
	history := &domain.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: &previous,
		ToStatus:   to,
		ChangedBy:  actor,
		Notes:      notes,
		ChangedAt:  at,
	}
	if err := t.historyRepo.WithTx(tx).Create(ctx, history); err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}

// updateIfStatusTx writes fields only while the persisted status is one of from. A status that
// moved since the caller loaded the order yields a TransitionError with the current status.
func (t *transitioner) updateIfStatusTx(ctx context.Context, tx *gorm.DB, id uint, from []domain.OrderStatus, fields map[string]interface{}) error {
	orders := t.orderRepo.WithTx(tx)
	ok, err := orders.UpdateFieldsIfStatus(ctx, id, from, fields)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if ok {
		return nil
	}
	current, err := orders.GetStatus(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to read order status: %w", err)
	}
	return invalidTransition(current)
}

// recordCreation writes the initial history row of a new order
func (t *transitioner) recordCreation(ctx context.Context, tx *gorm.DB, order *domain.Order, actor string) error {
	history := &domain.OrderStatusHistory{
		OrderID:   order.ID,
		ToStatus:  order.Status,
		ChangedBy: actor,
		ChangedAt: order.CreatedAt,
	}
	if err := t.historyRepo.WithTx(tx).Create(ctx, history); err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}
