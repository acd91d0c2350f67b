package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mapper"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	activeDaysLimit = 30
	riskDaysLimit   = 90
	// neverOrderedDays stands in for customers without any real sale
	neverOrderedDays = 999
	noPurchaseLabel  = "Sin compras"
)

// RetentionQuery filters the retention report
type RetentionQuery struct {
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Regions   []string
	Communes  []string
}

// ParseRetentionQuery reads the retention filters from request query parameters
func ParseRetentionQuery(q url.Values) (RetentionQuery, error) {
	f, err := ParseBIFilter(q)
	if err != nil {
		return RetentionQuery{}, err
	}
	return RetentionQuery{
		Search:    strings.TrimSpace(q.Get("search")),
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		Regions:   f.Regions,
		Communes:  f.Communes,
	}, nil
}

func (q RetentionQuery) filter() BIFilter {
	return BIFilter{StartDate: q.StartDate, EndDate: q.EndDate, Regions: q.Regions, Communes: q.Communes}
}

// ClassifyChurn maps days since the last sale to an activity tier
func ClassifyChurn(days int) domain.ChurnStatus {
	switch {
	case days <= activeDaysLimit:
		return domain.ChurnActive
	case days <= riskDaysLimit:
		return domain.ChurnRisk
	default:
		return domain.ChurnLost
	}
}

var churnRank = map[domain.ChurnStatus]int{
	domain.ChurnRisk:   0,
	domain.ChurnLost:   1,
	domain.ChurnActive: 2,
}

// RetentionService segments customers by inactivity and runs win-back follow-ups
type RetentionService struct {
	customerRepo *repository.CustomerRepository
	orderRepo    *repository.OrderRepository
	notifier     *Notifier
	logger       *zap.Logger
	now          Clock
}

func NewRetentionService(
	customerRepo *repository.CustomerRepository,
	orderRepo *repository.OrderRepository,
	notifier *Notifier,
	logger *zap.Logger,
) *RetentionService {
	return &RetentionService{
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		notifier:     notifier,
		logger:       logger,
		now:          systemClock,
	}
}

// SetClock replaces the time source used for inactivity
func (s *RetentionService) SetClock(now Clock) {
	s.now = now
}

func daysSince(now, t time.Time) int {
	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Report builds the retention segmentation for every matching customer
func (s *RetentionService) Report(ctx context.Context, query RetentionQuery) (*domain.RetentionReportDTO, error) {
	customers, err := s.customerRepo.ListAll(ctx, query.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	sales, err := s.orderRepo.ListRealSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	// Sales come oldest first, so the last one seen per customer is the most recent
	last := make(map[uint]*domain.Order)
	spent := make(map[uint]decimal.Decimal)
	for i := range sales {
		o := &sales[i]
		last[o.CustomerID] = o
		spent[o.CustomerID] = spent[o.CustomerID].Add(o.Totals().Subtotal)
	}

	filter := query.filter()
	now := s.now()
	report := &domain.RetentionReportDTO{Clients: []domain.RetentionClientDTO{}}

	for i := range customers {
		c := &customers[i]
		order := last[c.ID]
		if order == nil && (filter.hasDateRange() || filter.hasLocation()) {
			continue
		}
		if order != nil && (!filter.inDateRange(order.CreatedAt) || !filter.matchLocation(order)) {
			continue
		}

		client := domain.RetentionClientDTO{
			ID:                     c.ID,
			Name:                   c.FullName(),
			Company:                c.Company,
			Email:                  c.Email,
			Phone:                  c.Phone,
			DaysInactive:           neverOrderedDays,
			Status:                 domain.ChurnLost,
			TotalSpent:             spent[c.ID],
			LastProduct:            noPurchaseLabel,
			RetentionStatus:        c.RetentionStatus,
			LastRetentionContactAt: mapper.ToCustomerDTO(c).LastRetentionContactAt,
		}
		if order != nil {
			date := order.CreatedAt.UTC().Format(dateLayout)
			client.LastOrderDate = &date
			client.DaysInactive = daysSince(now, order.CreatedAt)
			client.Status = ClassifyChurn(client.DaysInactive)
			client.Region = order.Region
			client.Commune = order.Commune
			if len(order.Items) > 0 {
				client.LastProduct = order.Items[0].Description
			}
		}

		switch client.Status {
		case domain.ChurnActive:
			report.Summary.Active++
		case domain.ChurnRisk:
			report.Summary.Risk++
		default:
			report.Summary.Lost++
		}
		report.Clients = append(report.Clients, client)
	}
	report.Summary.TotalClients = len(report.Clients)

	sort.SliceStable(report.Clients, func(i, j int) bool {
		a, b := report.Clients[i], report.Clients[j]
		if churnRank[a.Status] != churnRank[b.Status] {
			return churnRank[a.Status] < churnRank[b.Status]
		}
		return a.TotalSpent.GreaterThan(b.TotalSpent)
	})

	return report, nil
}

// SendEmail sends the win-back message matching the customer's inactivity and marks them contacted
func (s *RetentionService) SendEmail(ctx context.Context, customerID uint) (*domain.MessageResponse, error) {
	customer, err := s.customer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	days := neverOrderedDays
	order, err := s.orderRepo.LastRealSale(ctx, customer.ID)
	switch {
	case err == nil:
		days = daysSince(now, order.CreatedAt)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to get last sale: %w", err)
	}

	lost := days > riskDaysLimit
	if err := s.notifier.Retention(ctx, customer, days, lost); err != nil {
		s.logger.Error("retention email failed", zap.Uint("customer_id", customer.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	if err := s.customerRepo.UpdateRetention(ctx, customer.ID, domain.RetentionStatusContacted, &now); err != nil {
		return nil, fmt.Errorf("failed to update retention status: %w", err)
	}

	s.logger.Info("retention email sent",
		zap.Uint("customer_id", customer.ID),
		zap.Int("days_inactive", days),
		zap.Bool("lost", lost))

	return &domain.MessageResponse{Message: fmt.Sprintf("Correo enviado a %s", customer.Email)}, nil
}

// UpdateStatus records the outcome of a retention follow-up
func (s *RetentionService) UpdateStatus(ctx context.Context, customerID uint, status domain.RetentionStatus) (*domain.CustomerDTO, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown retention status %q", ErrInvalidInput, status)
	}
	customer, err := s.customer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.UpdateRetention(ctx, customer.ID, status, nil); err != nil {
		return nil, fmt.Errorf("failed to update retention status: %w", err)
	}
	customer.RetentionStatus = status
	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

func (s *RetentionService) customer(ctx context.Context, id uint) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}
