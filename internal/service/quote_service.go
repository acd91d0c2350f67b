package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mapper"
	"github.com/clarotec/orders-api/internal/pdf"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/clarotec/orders-api/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuoteService handles quote submission, quote editing and quote documents
type QuoteService struct {
	db           *gorm.DB
	orderRepo    *repository.OrderRepository
	itemRepo     *repository.OrderItemRepository
	customerRepo *repository.CustomerRepository
	productRepo  *repository.ProductRepository
	transitions  *transitioner
	notifier     *Notifier
	renderer     pdf.Renderer
	archive      storage.Storage
	cfg          *config.QuoteConfig
	logger       *zap.Logger
	now          Clock
}

func NewQuoteService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	itemRepo *repository.OrderItemRepository,
	customerRepo *repository.CustomerRepository,
	productRepo *repository.ProductRepository,
	historyRepo *repository.OrderStatusHistoryRepository,
	notifier *Notifier,
	renderer pdf.Renderer,
	archive storage.Storage,
	cfg *config.QuoteConfig,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		db:           db,
		orderRepo:    orderRepo,
		itemRepo:     itemRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		transitions:  newTransitioner(db, orderRepo, historyRepo),
		notifier:     notifier,
		renderer:     renderer,
		archive:      archive,
		cfg:          cfg,
		logger:       logger,
		now:          systemClock,
	}
}

// SetClock replaces the time source
func (s *QuoteService) SetClock(now Clock) {
	s.now = now
}

// Submit records a public quote request: the customer is found by email or created, then the
// order and its items are created. Everything happens in one transaction.
func (s *QuoteService) Submit(ctx context.Context, req *domain.SubmitQuoteRequest) (*domain.OrderDTO, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}

	var orderID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.upsertCustomer(ctx, tx, &req.Customer)
		if err != nil {
			return err
		}

		order := &domain.Order{
			CustomerID:   customer.ID,
			Status:       domain.OrderStatusRequest,
			UrgencyPct:   decimal.Zero,
			ShippingCost: decimal.Zero,
			Region:       strings.TrimSpace(req.Region),
			Commune:      strings.TrimSpace(req.Commune),
		}
		now := s.now()
		order.CreatedAt = now
		order.UpdatedAt = now

		products := s.productRepo.WithTx(tx)
		for _, in := range req.Items {
			item := domain.LineItem{
				Description:   strings.TrimSpace(in.Description),
				Quantity:      in.Quantity,
				UnitPrice:     decimal.Zero,
				PurchasePrice: decimal.Zero,
				Origin:        in.Type,
				Reference:     strings.TrimSpace(in.Reference),
			}
			if item.Quantity < 1 {
				item.Quantity = 1
			}
			if in.ProductID != nil {
				product, err := products.GetByID(ctx, *in.ProductID)
				switch {
				case err == nil:
					item.ProductID = &product.ID
					if in.Type == domain.ItemOriginCatalog {
						item.UnitPrice = product.ReferencePrice
					}
				case errors.Is(err, gorm.ErrRecordNotFound):
					s.logger.Warn("quote item references unknown product", zap.Uint("product_id", *in.ProductID))
				default:
					return fmt.Errorf("failed to load product: %w", err)
				}
			}
			order.Items = append(order.Items, item)
		}

		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := s.transitions.recordCreation(ctx, tx, order, customer.Email); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	s.logger.Info("quote request received",
		zap.Uint("order_id", order.ID),
		zap.Uint("customer_id", order.CustomerID),
		zap.Int("items", len(order.Items)))

	dto := mapper.ToPortalOrderDTO(order)
	return &dto, nil
}

func (s *QuoteService) upsertCustomer(ctx context.Context, tx *gorm.DB, in *domain.QuoteCustomerInput) (*domain.Customer, error) {
	customers := s.customerRepo.WithTx(tx)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	customer, err := customers.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	if customer == nil {
		customer = &domain.Customer{
			FirstName:       strings.TrimSpace(in.Name),
			LastName:        strings.TrimSpace(in.Surname),
			Email:           email,
			Company:         strings.TrimSpace(in.Company),
			Phone:           strings.TrimSpace(in.Phone),
			RetentionStatus: domain.RetentionStatusPending,
		}
		if err := customers.Create(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
		return customer, nil
	}

	customer.FirstName = strings.TrimSpace(in.Name)
	customer.LastName = strings.TrimSpace(in.Surname)
	if company := strings.TrimSpace(in.Company); company != "" {
		customer.Company = company
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		customer.Phone = phone
	}
	if err := customers.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

// Update edits an order's commercial fields. When items are supplied the order must be a
// request or quote; existing lines are updated by id, lines without id are added, and the
// order becomes quoted.
func (s *QuoteService) Update(ctx context.Context, id uint, req *domain.UpdateOrderRequest) (*domain.OrderDTO, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	editingItems := req.Items != nil
	if editingItems && !statusIn(order.Status, []domain.OrderStatus{domain.OrderStatusRequest, domain.OrderStatusQuoted}) {
		return nil, invalidTransition(order.Status)
	}
	if err := validateOrderAmounts(req); err != nil {
		return nil, err
	}

	now := s.now()
	fields := map[string]interface{}{"updated_at": now}
	if req.UrgencyPct != nil {
		fields["urgency_pct"] = *req.UrgencyPct
	}
	if req.ShippingCost != nil {
		fields["shipping_cost"] = *req.ShippingCost
	}
	if req.Region != nil {
		fields["region"] = strings.TrimSpace(*req.Region)
	}
	if req.Commune != nil {
		fields["commune"] = strings.TrimSpace(*req.Commune)
	}
	if req.ShippingMethod != nil {
		fields["shipping_method"] = *req.ShippingMethod
	}
	if req.CustomCarrierName != nil {
		fields["custom_carrier_name"] = strings.TrimSpace(*req.CustomCarrierName)
	}
	if req.ShippingOptions != nil {
		fields["shipping_options"] = datatypes.JSONMap(req.ShippingOptions)
	}
	if req.AssignedToID != nil {
		fields["assigned_to_id"] = *req.AssignedToID
	}

	actor := auth.ActorFromContext(ctx, ActorSystem)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !editingItems {
			if err := s.orderRepo.WithTx(tx).UpdateFields(ctx, order.ID, fields); err != nil {
				return fmt.Errorf("failed to update order: %w", err)
			}
			return nil
		}
		// items may only change while the order still has the status checked above
		if err := s.transitions.updateIfStatusTx(ctx, tx, order.ID, []domain.OrderStatus{order.Status}, fields); err != nil {
			return err
		}
		if err := s.upsertItems(ctx, tx, order.ID, req.Items); err != nil {
			return err
		}
		if order.Status == domain.OrderStatusRequest {
			return s.transitions.applyTx(ctx, tx, order,
				[]domain.OrderStatus{domain.OrderStatusRequest}, domain.OrderStatusQuoted,
				actor, "quote prepared", now, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err = s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	s.logger.Info("order updated",
		zap.Uint("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("by", actor))

	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

func validateOrderAmounts(req *domain.UpdateOrderRequest) error {
	if req.UrgencyPct != nil && req.UrgencyPct.IsNegative() {
		return fmt.Errorf("%w: urgency_pct cannot be negative", ErrInvalidInput)
	}
	if req.ShippingCost != nil && req.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: shipping_cost cannot be negative", ErrInvalidInput)
	}
	for _, in := range req.Items {
		if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: unit_price cannot be negative", ErrInvalidInput)
		}
		if in.PurchasePrice != nil && in.PurchasePrice.IsNegative() {
			return fmt.Errorf("%w: purchase_price cannot be negative", ErrInvalidInput)
		}
		if in.ID == nil && (in.Description == nil || strings.TrimSpace(*in.Description) == "") {
			return fmt.Errorf("%w: new items require a description", ErrInvalidInput)
		}
	}
	return nil
}

func (s *QuoteService) upsertItems(ctx context.Context, tx *gorm.DB, orderID uint, inputs []domain.UpdateLineItemInput) error {
	items := s.itemRepo.WithTx(tx)
	for _, in := range inputs {
		var item *domain.LineItem
		if in.ID != nil {
			existing, err := items.GetForOrder(ctx, orderID, *in.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: item %d", ErrLineItemNotFound, *in.ID)
				}
				return fmt.Errorf("failed to load item: %w", err)
			}
			item = existing
		} else {
			item = &domain.LineItem{
				OrderID:       orderID,
				Quantity:      1,
				UnitPrice:     decimal.Zero,
				PurchasePrice: decimal.Zero,
				Origin:        domain.ItemOriginManual,
			}
		}

		if in.Description != nil {
			item.Description = strings.TrimSpace(*in.Description)
		}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			item.UnitPrice = *in.UnitPrice
		}
		if in.PurchasePrice != nil {
			item.PurchasePrice = *in.PurchasePrice
		}
		if in.Type != nil {
			item.Origin = *in.Type
		}
		if in.Reference != nil {
			item.Reference = strings.TrimSpace(*in.Reference)
		}
		if in.ProductID != nil {
			item.ProductID = in.ProductID
		}

		var err error
		if item.ID == 0 {
			err = items.Create(ctx, item)
		} else {
			err = items.Save(ctx, item)
		}
		if err != nil {
			return fmt.Errorf("failed to save item: %w", err)
		}
	}
	return nil
}

// SendQuote emails the customer a link to review the quote in the portal
func (s *QuoteService) SendQuote(ctx context.Context, id uint) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to get order: %w", err)
	}

	validUntil := s.now().Add(s.cfg.ValidityDuration())
	if err := s.notifier.SendQuote(ctx, order, validUntil); err != nil {
		s.logger.Error("failed to send quote email", zap.Uint("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	s.logger.Info("quote email sent", zap.Uint("order_id", order.ID), zap.String("to", order.Customer.Email))
	return nil
}

// RenderPDF produces the quote document and archives a copy. Archive failures are logged only.
func (s *QuoteService) RenderPDF(ctx context.Context, id uint) ([]byte, string, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrOrderNotFound
		}
		return nil, "", fmt.Errorf("failed to get order: %w", err)
	}

	now := s.now()
	var buf bytes.Buffer
	err = s.renderer.RenderQuote(&buf, &pdf.QuoteDocument{
		CompanyName: s.cfg.CompanyName,
		Order:       order,
		IssuedAt:    now,
		ValidUntil:  now.Add(s.cfg.ValidityDuration()),
	})
	if err != nil {
		s.logger.Error("failed to render quote pdf", zap.Uint("order_id", order.ID), zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrPDFRender, err)
	}

	key := storage.QuoteKey(order.ID, now)
	if _, err := s.archive.Put(ctx, key, "application/pdf", bytes.NewReader(buf.Bytes())); err != nil {
		s.logger.Warn("failed to archive quote pdf", zap.String("key", key), zap.Error(err))
	}

	return buf.Bytes(), fmt.Sprintf("Cotizacion_%d.pdf", order.ID), nil
}

