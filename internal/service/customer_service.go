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

type CustomerService struct {
	customerRepo *repository.CustomerRepository
	logger       *zap.Logger
}

func NewCustomerService(customerRepo *repository.CustomerRepository, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

func (s *CustomerService) Create(ctx context.Context, req *domain.CustomerRequest) (*domain.CustomerDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		FirstName:       strings.TrimSpace(req.Name),
		LastName:        strings.TrimSpace(req.Surname),
		Email:           email,
		Company:         strings.TrimSpace(req.Company),
		Phone:           strings.TrimSpace(req.Phone),
		RetentionStatus: domain.RetentionStatusPending,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer created",
		zap.Uint("customer_id", customer.ID),
		zap.String("by", auth.ActorFromContext(ctx, ActorSystem)))

	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id uint) (*domain.CustomerDTO, error) {
	customer, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

func (s *CustomerService) Update(ctx context.Context, id uint, req *domain.CustomerRequest) (*domain.CustomerDTO, error) {
	customer, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureEmailFree(ctx, email, customer.ID); err != nil {
		return nil, err
	}

	customer.FirstName = strings.TrimSpace(req.Name)
	customer.LastName = strings.TrimSpace(req.Surname)
	customer.Email = email
	customer.Company = strings.TrimSpace(req.Company)
	customer.Phone = strings.TrimSpace(req.Phone)

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

// Delete removes a customer that has no orders
func (s *CustomerService) Delete(ctx context.Context, id uint) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	count, err := s.customerRepo.CountOrders(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}
	if count > 0 {
		return ErrCustomerHasOrders
	}

	if err := s.customerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	s.logger.Info("customer deleted",
		zap.Uint("customer_id", id),
		zap.String("by", auth.ActorFromContext(ctx, ActorSystem)))
	return nil
}

func (s *CustomerService) List(ctx context.Context, page, pageSize int, search string) (*domain.PaginatedResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	customers, total, err := s.customerRepo.List(ctx, page, pageSize, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	dtos := make([]domain.CustomerDTO, len(customers))
	for i := range customers {
		dtos[i] = mapper.ToCustomerDTO(&customers[i])
	}

	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (s *CustomerService) get(ctx context.Context, id uint) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) ensureEmailFree(ctx context.Context, email string, selfID uint) error {
	existing, err := s.customerRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up customer: %w", err)
	}
	if existing.ID != selfID {
		return ErrEmailTaken
	}
	return nil
}
