package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Client types accepted by the client_type filter
const (
	ClientTypeNew       = "new"
	ClientTypeRecurring = "recurring"
)

// BIFilter narrows the completed-order set used by the reports
type BIFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Months      []string
	CustomerIDs []uint
	Regions     []string
	Communes    []string
	ClientTypes []string
}

// facet names one filter dimension so it can be left out when computing its own options
type facet int

const (
	facetNone facet = iota
	facetMonth
	facetCustomer
	facetRegion
	facetCommune
)

// listParam reads a multi-valued query parameter given either as key[]=a&key[]=b or key=a,b
func listParam(q url.Values, key string) []string {
	raw := append([]string{}, q[key+"[]"]...)
	raw = append(raw, q[key]...)

	var out []string
	seen := make(map[string]struct{})
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// ParseBIFilter builds a filter from request query parameters
func ParseBIFilter(q url.Values) (BIFilter, error) {
	var f BIFilter

	if v := strings.TrimSpace(q.Get("start_date")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidInput)
		}
		f.StartDate = &t
	}
	if v := strings.TrimSpace(q.Get("end_date")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidInput)
		}
		f.EndDate = &t
	}

	for _, m := range listParam(q, "month") {
		if _, err := time.Parse(monthLayout, m); err != nil {
			return f, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
		}
		f.Months = append(f.Months, m)
	}

	for _, raw := range listParam(q, "cliente_id") {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("%w: cliente_id must be numeric", ErrInvalidInput)
		}
		f.CustomerIDs = append(f.CustomerIDs, uint(id))
	}

	f.Regions = listParam(q, "region")
	f.Communes = listParam(q, "comuna")

	for _, ct := range listParam(q, "client_type") {
		ct = strings.ToLower(ct)
		if ct != ClientTypeNew && ct != ClientTypeRecurring {
			return f, fmt.Errorf("%w: client_type must be new or recurring", ErrInvalidInput)
		}
		f.ClientTypes = append(f.ClientTypes, ct)
	}

	return f, nil
}

// inDateRange checks t against the inclusive start/end calendar days
func (f BIFilter) inDateRange(t time.Time) bool {
	day := t.UTC().Format(dateLayout)
	if f.StartDate != nil && day < f.StartDate.Format(dateLayout) {
		return false
	}
	if f.EndDate != nil && day > f.EndDate.Format(dateLayout) {
		return false
	}
	return true
}

func (f BIFilter) hasDateRange() bool {
	return f.StartDate != nil || f.EndDate != nil
}

func (f BIFilter) hasLocation() bool {
	return len(f.Regions) > 0 || len(f.Communes) > 0
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// matchLocation applies the region and commune filters to an order
func (f BIFilter) matchLocation(order *domain.Order) bool {
	if len(f.Regions) > 0 && !containsFold(f.Regions, order.Region) {
		return false
	}
	if len(f.Communes) > 0 && !containsFold(f.Communes, order.Commune) {
		return false
	}
	return true
}

// Match reports whether a completed order passes every filter
func (f BIFilter) Match(order *domain.Order, completedCounts map[uint]int) bool {
	return f.matchExcept(order, completedCounts, facetNone)
}

func (f BIFilter) matchExcept(order *domain.Order, completedCounts map[uint]int, skip facet) bool {
	effective := order.EffectiveDate()
	if !f.inDateRange(effective) {
		return false
	}
	if skip != facetMonth && len(f.Months) > 0 && !containsFold(f.Months, effective.UTC().Format(monthLayout)) {
		return false
	}
	if skip != facetCustomer && len(f.CustomerIDs) > 0 && !containsID(f.CustomerIDs, order.CustomerID) {
		return false
	}
	if skip != facetRegion && len(f.Regions) > 0 && !containsFold(f.Regions, order.Region) {
		return false
	}
	if skip != facetCommune && len(f.Communes) > 0 && !containsFold(f.Communes, order.Commune) {
		return false
	}
	if len(f.ClientTypes) > 0 {
		kind := ClientTypeNew
		if completedCounts[order.CustomerID] > 1 {
			kind = ClientTypeRecurring
		}
		if !containsFold(f.ClientTypes, kind) {
			return false
		}
	}
	return true
}

// Apply returns the orders that pass the filter
func (f BIFilter) Apply(orders []domain.Order, completedCounts map[uint]int) []domain.Order {
	return f.applyExcept(orders, completedCounts, facetNone)
}

func (f BIFilter) applyExcept(orders []domain.Order, completedCounts map[uint]int, skip facet) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for i := range orders {
		if f.matchExcept(&orders[i], completedCounts, skip) {
			out = append(out, orders[i])
		}
	}
	return out
}
