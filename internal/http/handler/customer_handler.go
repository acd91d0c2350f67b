package handler

import (
	"net/http"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customers *service.CustomerService
	logger    *zap.Logger
}

func NewCustomerHandler(customers *service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, logger: logger}
}

// List godoc
// @Summary List customers
// @Tags Customers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 200)" default(20)
// @Param search query string false "Name, email or company"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.CustomerDTO}
// @Security BearerAuth
// @Router /clientes-crud [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	result, err := h.customers.List(r.Context(), page, pageSize, r.URL.Query().Get("search"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list customers")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get customer
// @Tags Customers
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} domain.CustomerDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clientes-crud/{id} [get]
func (h *CustomerHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	customer, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get customer")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// Create godoc
// @Summary Create customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param customer body domain.CustomerRequest true "Customer"
// @Success 201 {object} domain.CustomerDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /clientes-crud [post]
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	customer, err := h.customers.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create customer")
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

// Update godoc
// @Summary Update customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path int true "Customer ID"
// @Param customer body domain.CustomerRequest true "Customer"
// @Success 200 {object} domain.CustomerDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /clientes-crud/{id} [put]
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	customer, err := h.customers.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update customer")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// Delete godoc
// @Summary Delete customer
// @Description Refused with 409 while the customer has orders
// @Tags Customers
// @Param id path int true "Customer ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /clientes-crud/{id} [delete]
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
