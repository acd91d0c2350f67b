package service

import (
	"strings"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/shipping"
)

// ShippingService exposes the zone-based carrier estimator
type ShippingService struct{}

func NewShippingService() *ShippingService {
	return &ShippingService{}
}

// Estimate prices every carrier for a destination commune
func (s *ShippingService) Estimate(commune string) (*domain.ShippingQuoteDTO, error) {
	commune = strings.TrimSpace(commune)
	if commune == "" {
		return nil, ErrInvalidInput
	}

	q := shipping.QuoteAll(commune)
	options := make(map[string]int64, len(q.Options))
	for carrier, cost := range q.Options {
		options[string(carrier)] = cost
	}
	return &domain.ShippingQuoteDTO{
		Commune:      commune,
		Options:      options,
		DetectedZone: string(q.Zone),
	}, nil
}

// Directory lists the communes served in each zone with its base price
func (s *ShippingService) Directory() []domain.ZoneDirectoryDTO {
	zones := shipping.Directory()
	dtos := make([]domain.ZoneDirectoryDTO, len(zones))
	for i, z := range zones {
		dtos[i] = domain.ZoneDirectoryDTO{
			Zone:      string(z.Zone),
			BasePrice: z.BasePrice,
			Communes:  z.Communes,
		}
	}
	return dtos
}
