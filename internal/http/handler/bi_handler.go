package handler

import (
	"net/http"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

// BIHandler serves the reporting endpoints. Every list filter accepts both "key[]=a&key[]=b" and "key=a,b".
type BIHandler struct {
	bi        *service.BIService
	retention *service.RetentionService
	logger    *zap.Logger
}

func NewBIHandler(bi *service.BIService, retention *service.RetentionService, logger *zap.Logger) *BIHandler {
	return &BIHandler{bi: bi, retention: retention, logger: logger}
}

func (h *BIHandler) filter(w http.ResponseWriter, r *http.Request) (service.BIFilter, bool) {
	f, err := service.ParseBIFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return f, false
	}
	return f, true
}

// KPIs godoc
// @Summary Headline metrics over completed orders
// @Tags BI
// @Produce json
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Param month[] query []string false "YYYY-MM" collectionFormat(multi)
// @Param cliente_id[] query []int false "Customer ids" collectionFormat(multi)
// @Param region[] query []string false "Regions" collectionFormat(multi)
// @Param comuna[] query []string false "Communes" collectionFormat(multi)
// @Param client_type[] query []string false "new or recurring" collectionFormat(multi)
// @Success 200 {object} domain.KPIsDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /bi/kpis [get]
func (h *BIHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	kpis, err := h.bi.KPIs(r.Context(), f)
	if err != nil {
		handleServiceError(w, h.logger, err, "compute kpis")
		return
	}
	respondJSON(w, http.StatusOK, kpis)
}

// Profitability godoc
// @Summary Per-order profit and margin
// @Tags BI
// @Produce json
// @Success 200 {array} domain.ProfitabilityRowDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /bi/rentabilidad [get]
func (h *BIHandler) Profitability(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	rows, err := h.bi.Profitability(r.Context(), f)
	if err != nil {
		handleServiceError(w, h.logger, err, "compute profitability")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// DashboardStats godoc
// @Summary Top products, sales by region and monthly trend
// @Tags BI
// @Produce json
// @Success 200 {object} domain.DashboardStatsDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /bi/dashboard-stats [get]
func (h *BIHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	stats, err := h.bi.DashboardStats(r.Context(), f)
	if err != nil {
		handleServiceError(w, h.logger, err, "compute dashboard stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// FilterOptions godoc
// @Summary Values available for each report filter
// @Description Each dimension is narrowed by every active filter except its own
// @Tags BI
// @Produce json
// @Success 200 {object} domain.FilterOptionsDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /bi/filter-options [get]
func (h *BIHandler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	options, err := h.bi.FilterOptions(r.Context(), f)
	if err != nil {
		handleServiceError(w, h.logger, err, "list filter options")
		return
	}
	respondJSON(w, http.StatusOK, options)
}

// LogisticsInfo godoc
// @Summary Shipping zones with base price and communes
// @Tags BI
// @Produce json
// @Success 200 {array} domain.ZoneDirectoryDTO
// @Router /bi/info-logistica [get]
func (h *BIHandler) LogisticsInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.bi.LogisticsInfo())
}

// Retention godoc
// @Summary Churn segmentation of customers
// @Tags BI
// @Produce json
// @Param search query string false "Name, email or company"
// @Param start_date query string false "YYYY-MM-DD, applied to the last order"
// @Param end_date query string false "YYYY-MM-DD, applied to the last order"
// @Param region[] query []string false "Regions" collectionFormat(multi)
// @Param comuna[] query []string false "Communes" collectionFormat(multi)
// @Success 200 {object} domain.RetentionReportDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /bi/retention [get]
func (h *BIHandler) Retention(w http.ResponseWriter, r *http.Request) {
	query, err := service.ParseRetentionQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.retention.Report(r.Context(), query)
	if err != nil {
		handleServiceError(w, h.logger, err, "build retention report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// SendRetentionEmail godoc
// @Summary Send a win-back email and mark the customer contacted
// @Tags BI
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} domain.MessageResponse
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Router /bi/retention/email/{id} [post]
func (h *BIHandler) SendRetentionEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	msg, err := h.retention.SendEmail(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "send retention email")
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// UpdateRetentionStatus godoc
// @Summary Set the follow-up status of a customer
// @Tags BI
// @Accept json
// @Produce json
// @Param id path int true "Customer ID"
// @Param status body domain.RetentionStatusRequest true "pending, contacted, no_response, rejected or recovered"
// @Success 200 {object} domain.CustomerDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /bi/retention/status/{id} [post]
func (h *BIHandler) UpdateRetentionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.RetentionStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	customer, err := h.retention.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		handleServiceError(w, h.logger, err, "update retention status")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}
