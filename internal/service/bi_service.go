package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	topProductsLimit   = 10
	productNameMaxLen  = 20
	unknownRegionLabel = "Sin Región"
)

// BIService computes the management reports over completed orders
type BIService struct {
	orderRepo *repository.OrderRepository
	shipping  *ShippingService
	logger    *zap.Logger
}

func NewBIService(orderRepo *repository.OrderRepository, shipping *ShippingService, logger *zap.Logger) *BIService {
	return &BIService{
		orderRepo: orderRepo,
		shipping:  shipping,
		logger:    logger,
	}
}

// dataset is the completed-order set together with the all-time completed count per customer
type dataset struct {
	orders []domain.Order
	counts map[uint]int
}

func (s *BIService) load(ctx context.Context) (*dataset, error) {
	var ds dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := s.orderRepo.ListCompleted(gctx)
		if err != nil {
			return fmt.Errorf("failed to list completed orders: %w", err)
		}
		ds.orders = orders
		return nil
	})
	g.Go(func() error {
		counts, err := s.orderRepo.CompletedCountsByCustomer(gctx)
		if err != nil {
			return fmt.Errorf("failed to count completed orders: %w", err)
		}
		ds.counts = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// percent returns part/whole × 100 rounded to places, or zero when whole is zero
func percent(part, whole decimal.Decimal, places int32) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundredPct).Round(places)
}

var hundredPct = decimal.NewFromInt(100)

// KPIs summarizes recurrence, margin and revenue for the filtered orders
func (s *BIService) KPIs(ctx context.Context, filter BIFilter) (*domain.KPIsDTO, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	orders := filter.Apply(ds.orders, ds.counts)

	customers := make(map[uint]struct{})
	revenue := decimal.Zero
	cost := decimal.Zero
	for i := range orders {
		customers[orders[i].CustomerID] = struct{}{}
		revenue = revenue.Add(orders[i].Totals().Net)
		cost = cost.Add(orders[i].PurchaseCost())
	}

	recurring := 0
	for id := range customers {
		if ds.counts[id] > 1 {
			recurring++
		}
	}
	profit := revenue.Sub(cost)

	return &domain.KPIsDTO{
		RecurrenceRate:     percent(decimal.NewFromInt(int64(recurring)), decimal.NewFromInt(int64(len(customers))), 1),
		NewCustomers:       len(customers) - recurring,
		RecurringCustomers: recurring,
		OperatingMargin:    percent(profit, revenue, 1),
		TotalRevenue:       revenue,
		TotalProfit:        profit,
		TotalOrders:        len(orders),
	}, nil
}

// Profitability lists net revenue, profit and margin per order, most recent first
func (s *BIService) Profitability(ctx context.Context, filter BIFilter) ([]domain.ProfitabilityRowDTO, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	orders := filter.Apply(ds.orders, ds.counts)
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].EffectiveDate().After(orders[j].EffectiveDate())
	})

	rows := make([]domain.ProfitabilityRowDTO, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		net := o.Totals().Net
		profit := net.Sub(o.PurchaseCost())
		name := ""
		if o.Customer != nil {
			name = o.Customer.FullName()
		}
		rows = append(rows, domain.ProfitabilityRowDTO{
			ID:         o.ID,
			Date:       o.EffectiveDate().UTC().Format(dateLayout),
			Customer:   name,
			NetRevenue: net,
			Profit:     profit,
			Margin:     percent(profit, net, 2),
		})
	}
	return rows, nil
}

// DashboardStats builds the chart data. The three aggregations run concurrently.
func (s *BIService) DashboardStats(ctx context.Context, filter BIFilter) (*domain.DashboardStatsDTO, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	orders := filter.Apply(ds.orders, ds.counts)

	stats := &domain.DashboardStatsDTO{}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats.TopProducts = topProducts(orders)
		return nil
	})
	g.Go(func() error {
		stats.SalesByRegion = salesByRegion(orders)
		return nil
	})
	g.Go(func() error {
		stats.MonthlyTrend = monthlyTrend(orders)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func shortName(name string) string {
	if utf8.RuneCountInString(name) <= productNameMaxLen {
		return name
	}
	return string([]rune(name)[:productNameMaxLen]) + "..."
}

func topProducts(orders []domain.Order) []domain.TopProductDTO {
	totals := make(map[string]decimal.Decimal)
	for i := range orders {
		for j := range orders[i].Items {
			item := &orders[i].Items[j]
			name := strings.TrimSpace(item.Description)
			totals[name] = totals[name].Add(item.LineTotal())
		}
	}

	products := make([]domain.TopProductDTO, 0, len(totals))
	for name, value := range totals {
		products = append(products, domain.TopProductDTO{Name: shortName(name), FullName: name, Value: value})
	}
	sort.Slice(products, func(i, j int) bool {
		if c := products[i].Value.Cmp(products[j].Value); c != 0 {
			return c > 0
		}
		return products[i].FullName < products[j].FullName
	})
	if len(products) > topProductsLimit {
		products = products[:topProductsLimit]
	}
	return products
}

func salesByRegion(orders []domain.Order) []domain.RegionSalesDTO {
	totals := make(map[string]decimal.Decimal)
	for i := range orders {
		region := strings.TrimSpace(orders[i].Region)
		if region == "" {
			region = unknownRegionLabel
		}
		totals[region] = totals[region].Add(orders[i].Totals().Subtotal)
	}

	regions := make([]domain.RegionSalesDTO, 0, len(totals))
	for name, value := range totals {
		regions = append(regions, domain.RegionSalesDTO{Name: name, Value: value})
	}
	sort.Slice(regions, func(i, j int) bool {
		if c := regions[i].Value.Cmp(regions[j].Value); c != 0 {
			return c > 0
		}
		return regions[i].Name < regions[j].Name
	})
	return regions
}

func monthlyTrend(orders []domain.Order) []domain.MonthlyTrendDTO {
	byMonth := make(map[string]*domain.MonthlyTrendDTO)
	for i := range orders {
		o := &orders[i]
		month := o.EffectiveDate().UTC().Format(monthLayout)
		point, ok := byMonth[month]
		if !ok {
			point = &domain.MonthlyTrendDTO{Name: month, Sales: decimal.Zero, Costs: decimal.Zero, Profit: decimal.Zero}
			byMonth[month] = point
		}
		totals := o.Totals()
		cost := o.PurchaseCost()
		point.Sales = point.Sales.Add(totals.Total)
		point.Costs = point.Costs.Add(cost)
		point.Profit = point.Profit.Add(totals.Net.Sub(cost))
	}

	trend := make([]domain.MonthlyTrendDTO, 0, len(byMonth))
	for _, point := range byMonth {
		trend = append(trend, *point)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Name < trend[j].Name })
	return trend
}

// FilterOptions returns, per dimension, the values still reachable under the other active filters
func (s *BIService) FilterOptions(ctx context.Context, filter BIFilter) (*domain.FilterOptionsDTO, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	opts := &domain.FilterOptionsDTO{
		Regions:   distinctStrings(filter.applyExcept(ds.orders, ds.counts, facetRegion), func(o *domain.Order) string { return o.Region }),
		Communes:  distinctStrings(filter.applyExcept(ds.orders, ds.counts, facetCommune), func(o *domain.Order) string { return o.Commune }),
		Months:    distinctStrings(filter.applyExcept(ds.orders, ds.counts, facetMonth), func(o *domain.Order) string { return o.EffectiveDate().UTC().Format(monthLayout) }),
		Customers: []domain.CustomerOptionDTO{},
	}

	seen := make(map[uint]struct{})
	for _, o := range filter.applyExcept(ds.orders, ds.counts, facetCustomer) {
		if _, ok := seen[o.CustomerID]; ok || o.Customer == nil {
			continue
		}
		seen[o.CustomerID] = struct{}{}
		opts.Customers = append(opts.Customers, domain.CustomerOptionDTO{ID: o.CustomerID, Name: o.Customer.FullName()})
	}
	sort.Slice(opts.Customers, func(i, j int) bool {
		if opts.Customers[i].Name != opts.Customers[j].Name {
			return opts.Customers[i].Name < opts.Customers[j].Name
		}
		return opts.Customers[i].ID < opts.Customers[j].ID
	})

	return opts, nil
}

func distinctStrings(orders []domain.Order, value func(*domain.Order) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range orders {
		v := strings.TrimSpace(value(&orders[i]))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// LogisticsInfo returns the shipping zone directory
func (s *BIService) LogisticsInfo() []domain.ZoneDirectoryDTO {
	return s.shipping.Directory()
}
