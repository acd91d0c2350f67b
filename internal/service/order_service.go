package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mapper"
	"github.com/clarotec/orders-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Queue names a staff work list
type Queue string

const (
	QueueRequests        Queue = "solicitudes"
	QueueQuoted          Queue = "cotizados"
	QueueQuoteHistory    Queue = "historial-cotizaciones"
	QueueAccepted        Queue = "aceptados"
	QueuePaymentHistory  Queue = "historial-pagos"
	QueueToDispatch      Queue = "para-despachar"
	QueueDispatchHistory Queue = "historial-despachos"
)

type queueDef struct {
	statuses []domain.OrderStatus
	orderBy  string
}

var queues = map[Queue]queueDef{
	QueueRequests: {[]domain.OrderStatus{domain.OrderStatusRequest}, "created_at DESC, id DESC"},
	QueueQuoted:   {[]domain.OrderStatus{domain.OrderStatusQuoted}, "updated_at DESC, id DESC"},
	QueueQuoteHistory: {[]domain.OrderStatus{
		domain.OrderStatusAccepted,
		domain.OrderStatusRejected,
		domain.OrderStatusCompleted,
		domain.OrderStatusDispatched,
		domain.OrderStatusPaymentConfirmed,
	}, "updated_at DESC, id DESC"},
	QueueAccepted:        {[]domain.OrderStatus{domain.OrderStatusAccepted}, "updated_at DESC, id DESC"},
	QueuePaymentHistory:  {[]domain.OrderStatus{domain.OrderStatusPaymentConfirmed}, "updated_at DESC, id DESC"},
	QueueToDispatch:      {[]domain.OrderStatus{domain.OrderStatusPaymentConfirmed}, "updated_at ASC, id ASC"},
	QueueDispatchHistory: {[]domain.OrderStatus{domain.OrderStatusDispatched, domain.OrderStatusCompleted}, "dispatched_at DESC, id DESC"},
}

// OrderService serves staff order reads, deletion and the customer's own order list
type OrderService struct {
	orderRepo   *repository.OrderRepository
	historyRepo *repository.OrderStatusHistoryRepository
	logger      *zap.Logger
}

func NewOrderService(
	orderRepo *repository.OrderRepository,
	historyRepo *repository.OrderStatusHistoryRepository,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

func (s *OrderService) GetByID(ctx context.Context, id uint) (*domain.OrderDTO, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// List returns a page of all orders, optionally filtered by status and customer search
func (s *OrderService) List(ctx context.Context, page, pageSize int, status string, search string) (*domain.PaginatedResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	filter := repository.OrderListFilter{Search: strings.TrimSpace(search)}
	for _, raw := range strings.Split(status, ",") {
		st := domain.OrderStatus(strings.TrimSpace(raw))
		if st == "" {
			continue
		}
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, st)
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	orders, total, err := s.orderRepo.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &domain.PaginatedResponse{
		Data:       mapper.ToOrderDTOs(orders),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Queue returns every order in the named work list
func (s *OrderService) Queue(ctx context.Context, name Queue) ([]domain.OrderDTO, error) {
	def, ok := queues[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown queue %q", ErrInvalidInput, name)
	}
	orders, err := s.orderRepo.ListByStatuses(ctx, def.statuses, def.orderBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}
	return mapper.ToOrderDTOs(orders), nil
}

// Delete removes an order with its items and history
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	if _, err := s.orderRepo.GetStatus(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to get order: %w", err)
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	s.logger.Info("order deleted", zap.Uint("order_id", id), zap.String("by", auth.ActorFromContext(ctx, ActorSystem)))
	return nil
}

// History returns the order's status transitions, oldest first
func (s *OrderService) History(ctx context.Context, id uint) ([]domain.OrderStatusHistoryDTO, error) {
	if _, err := s.orderRepo.GetStatus(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	rows, err := s.historyRepo.ListByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	dtos := make([]domain.OrderStatusHistoryDTO, len(rows))
	for i := range rows {
		dtos[i] = mapper.ToOrderStatusHistoryDTO(&rows[i])
	}
	return dtos, nil
}

// ListMine returns the orders placed with the authenticated user's email
func (s *OrderService) ListMine(ctx context.Context) ([]domain.OrderDTO, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	orders, err := s.orderRepo.ListByCustomerEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return mapper.ToPortalOrderDTOs(orders), nil
}
