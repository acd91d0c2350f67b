package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mapper"
	"github.com/clarotec/orders-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var cancellableStatuses = []domain.OrderStatus{
	domain.OrderStatusRequest,
	domain.OrderStatusQuoted,
	domain.OrderStatusAccepted,
}

// OrderLifecycleService performs the staff-driven status transitions
type OrderLifecycleService struct {
	orderRepo   *repository.OrderRepository
	transitions *transitioner
	notifier    *Notifier
	logger      *zap.Logger
	now         Clock
}

func NewOrderLifecycleService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	historyRepo *repository.OrderStatusHistoryRepository,
	notifier *Notifier,
	logger *zap.Logger,
) *OrderLifecycleService {
	return &OrderLifecycleService{
		orderRepo:   orderRepo,
		transitions: newTransitioner(db, orderRepo, historyRepo),
		notifier:    notifier,
		logger:      logger,
		now:         systemClock,
	}
}

// SetClock replaces the time source
func (s *OrderLifecycleService) SetClock(now Clock) {
	s.now = now
}

func (s *OrderLifecycleService) load(ctx context.Context, id uint) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (s *OrderLifecycleService) move(ctx context.Context, id uint, from []domain.OrderStatus, to domain.OrderStatus, notes string, fields map[string]interface{}) (*domain.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	actor := auth.ActorFromContext(ctx, ActorSystem)
	if err := s.transitions.apply(ctx, order, from, to, actor, notes, s.now(), fields); err != nil {
		return nil, err
	}
	s.logger.Info("order status changed",
		zap.Uint("order_id", order.ID),
		zap.String("to", string(to)),
		zap.String("by", actor))
	return order, nil
}

// ConfirmPayment moves an accepted order to payment_confirmed and emails the customer
func (s *OrderLifecycleService) ConfirmPayment(ctx context.Context, id uint) (*domain.OrderDTO, error) {
	order, err := s.move(ctx, id,
		[]domain.OrderStatus{domain.OrderStatusAccepted}, domain.OrderStatusPaymentConfirmed,
		"payment confirmed", nil)
	if err != nil {
		return nil, err
	}
	s.notifier.PaymentConfirmed(ctx, order)
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// RejectPayment moves an accepted order to rejected and emails the customer
func (s *OrderLifecycleService) RejectPayment(ctx context.Context, id uint) (*domain.OrderDTO, error) {
	order, err := s.move(ctx, id,
		[]domain.OrderStatus{domain.OrderStatusAccepted}, domain.OrderStatusRejected,
		"payment rejected", nil)
	if err != nil {
		return nil, err
	}
	s.notifier.PaymentRejected(ctx, order)
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// MarkDispatched records carrier and waybill on a paid order and emails the customer
func (s *OrderLifecycleService) MarkDispatched(ctx context.Context, id uint, req *domain.MarkDispatchedRequest) (*domain.OrderDTO, error) {
	carrier := strings.TrimSpace(req.Carrier)
	waybill := strings.TrimSpace(req.WaybillNumber)
	if carrier == "" || waybill == "" {
		return nil, fmt.Errorf("%w: carrier and waybill_number are required", ErrInvalidInput)
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]interface{}{
		"carrier":        carrier,
		"waybill_number": waybill,
		"dispatched_at":  now,
	}
	actor := auth.ActorFromContext(ctx, ActorSystem)
	err = s.transitions.apply(ctx, order,
		[]domain.OrderStatus{domain.OrderStatusPaymentConfirmed}, domain.OrderStatusDispatched,
		actor, fmt.Sprintf("%s %s", carrier, waybill), now, fields)
	if err != nil {
		return nil, err
	}
	order.Carrier = carrier
	order.WaybillNumber = waybill
	order.DispatchedAt = &now

	s.logger.Info("order dispatched",
		zap.Uint("order_id", order.ID),
		zap.String("carrier", carrier),
		zap.String("by", actor))

	s.notifier.Dispatched(ctx, order)
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// Cancel rejects an order that has not been paid yet
func (s *OrderLifecycleService) Cancel(ctx context.Context, id uint) (*domain.OrderDTO, error) {
	order, err := s.move(ctx, id, cancellableStatuses, domain.OrderStatusRejected, "cancelled by staff", nil)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}
