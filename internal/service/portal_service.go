package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mapper"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/clarotec/orders-api/internal/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Portal actions accepted by Act; the Spanish forms are kept for existing links and clients
const (
	PortalActionAccept = "accept"
	PortalActionReject = "reject"
)

var portalActions = map[string]domain.OrderStatus{
	PortalActionAccept: domain.OrderStatusAccepted,
	"aceptar":          domain.OrderStatusAccepted,
	PortalActionReject: domain.OrderStatusRejected,
	"rechazar":         domain.OrderStatusRejected,
}

var shippingSelectableStatuses = []domain.OrderStatus{
	domain.OrderStatusRequest,
	domain.OrderStatusQuoted,
	domain.OrderStatusAccepted,
}

// PortalService serves the unauthenticated customer portal. Possession of the tracking id is
// the only credential.
type PortalService struct {
	db          *gorm.DB
	orderRepo   *repository.OrderRepository
	transitions *transitioner
	cfg         *config.QuoteConfig
	logger      *zap.Logger
	now         Clock
}

func NewPortalService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	historyRepo *repository.OrderStatusHistoryRepository,
	cfg *config.QuoteConfig,
	logger *zap.Logger,
) *PortalService {
	return &PortalService{
		db:          db,
		orderRepo:   orderRepo,
		transitions: newTransitioner(db, orderRepo, historyRepo),
		cfg:         cfg,
		logger:      logger,
		now:         systemClock,
	}
}

// SetClock replaces the time source used by quote expiry
func (s *PortalService) SetClock(now Clock) {
	s.now = now
}

func (s *PortalService) load(ctx context.Context, trackingID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// expireIfStale rejects a quote whose validity window has passed since its last update
func (s *PortalService) expireIfStale(ctx context.Context, order *domain.Order) error {
	if order.Status != domain.OrderStatusQuoted {
		return nil
	}
	now := s.now()
	if !now.After(order.UpdatedAt.Add(s.cfg.ValidityDuration())) {
		return nil
	}

	err := s.transitions.apply(ctx, order,
		[]domain.OrderStatus{domain.OrderStatusQuoted}, domain.OrderStatusRejected,
		ActorPortal, "quote expired", now, nil)
	var te *TransitionError
	if errors.As(err, &te) {
		// Changed concurrently; report what is stored now
		order.Status = te.Current
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("quote expired on portal read", zap.Uint("order_id", order.ID))
	return nil
}

// Get returns the order for the customer, first expiring it if the quote is stale
func (s *PortalService) Get(ctx context.Context, trackingID uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.load(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfStale(ctx, order); err != nil {
		return nil, err
	}
	dto := mapper.ToPortalOrderDTO(order)
	return &dto, nil
}

// Act applies the customer's accept or reject decision on a quote
func (s *PortalService) Act(ctx context.Context, trackingID uuid.UUID, action string) (*domain.OrderDTO, error) {
	to, ok := portalActions[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	order, err := s.load(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfStale(ctx, order); err != nil {
		return nil, err
	}

	err = s.transitions.apply(ctx, order,
		[]domain.OrderStatus{domain.OrderStatusQuoted}, to,
		ActorPortal, "customer "+string(to), s.now(), nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer decided on quote", zap.Uint("order_id", order.ID), zap.String("status", string(to)))
	dto := mapper.ToPortalOrderDTO(order)
	return &dto, nil
}

// SelectShipping stores the customer's carrier choice and its cost
func (s *PortalService) SelectShipping(ctx context.Context, trackingID uuid.UUID, req *domain.SelectShippingRequest) (*domain.OrderDTO, error) {
	method := domain.ShippingMethod(strings.ToUpper(strings.TrimSpace(string(req.ShippingMethod))))
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: unknown shipping_method %q", ErrInvalidInput, req.ShippingMethod)
	}

	order, err := s.load(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfStale(ctx, order); err != nil {
		return nil, err
	}
	if !statusIn(order.Status, shippingSelectableStatuses) {
		return nil, invalidTransition(order.Status)
	}

	cost := shippingCostFor(order, method)
	customName := ""
	if method == domain.ShippingMethodOther {
		customName = strings.TrimSpace(req.CustomCarrierName)
	}

	now := s.now()
	fields := map[string]interface{}{
		"shipping_method":     method,
		"custom_carrier_name": customName,
		"shipping_cost":       cost,
		"updated_at":          now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.transitions.updateIfStatusTx(ctx, tx, order.ID, shippingSelectableStatuses, fields)
	})
	if err != nil {
		return nil, err
	}
	order.ShippingMethod = method
	order.CustomCarrierName = customName
	order.ShippingCost = cost
	order.UpdatedAt = now

	s.logger.Info("shipping selected",
		zap.Uint("order_id", order.ID),
		zap.String("method", string(method)),
		zap.String("cost", cost.String()))

	dto := mapper.ToPortalOrderDTO(order)
	return &dto, nil
}

// shippingCostFor prefers the price staff stored in the order's shipping options and falls
// back to the estimator. OTHER is always free.
func shippingCostFor(order *domain.Order, method domain.ShippingMethod) decimal.Decimal {
	if method == domain.ShippingMethodOther {
		return decimal.Zero
	}
	for key, raw := range order.ShippingOptions {
		if !strings.EqualFold(key, string(method)) {
			continue
		}
		if cost, ok := optionCost(raw); ok {
			return cost
		}
	}
	cost, _ := shipping.Estimate(order.Commune, shipping.Carrier(method))
	return decimal.NewFromInt(cost)
}

func optionCost(raw interface{}) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case int64:
		d = decimal.NewFromInt(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case map[string]interface{}:
		if inner, ok := v["cost"]; ok {
			return optionCost(inner)
		}
		return decimal.Zero, false
	default:
		return decimal.Zero, false
	}
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// ConfirmReceipt completes a dispatched order
func (s *PortalService) ConfirmReceipt(ctx context.Context, trackingID uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.load(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	err = s.transitions.apply(ctx, order,
		[]domain.OrderStatus{domain.OrderStatusDispatched}, domain.OrderStatusCompleted,
		ActorPortal, "receipt confirmed", s.now(), nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer confirmed receipt", zap.Uint("order_id", order.ID))
	dto := mapper.ToPortalOrderDTO(order)
	return &dto, nil
}

// ExpireStaleQuotes rejects every quote past its validity window. It returns how many expired.
func (s *PortalService) ExpireStaleQuotes(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.orderRepo.ListStaleQuotes(ctx, now.Add(-s.cfg.ValidityDuration()))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale quotes: %w", err)
	}

	expired := 0
	for i := range stale {
		err := s.transitions.apply(ctx, &stale[i],
			[]domain.OrderStatus{domain.OrderStatusQuoted}, domain.OrderStatusRejected,
			ActorSystem, "quote expired", now, nil)
		if errors.Is(err, ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
