package handler

import (
	"net/http"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products *service.ProductService
	logger   *zap.Logger
}

func NewProductHandler(products *service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// ListPublic godoc
// @Summary Active catalog for the quote form
// @Description Reference prices are not included
// @Tags Products
// @Produce json
// @Param category query string false "Category"
// @Success 200 {array} domain.ProductDTO
// @Router /productos/frecuentes [get]
func (h *ProductHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListPublic(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// List godoc
// @Summary Full catalog with reference prices
// @Tags Products
// @Produce json
// @Param category query string false "Category"
// @Success 200 {array} domain.ProductDTO
// @Security BearerAuth
// @Router /productos-crud [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetByID godoc
// @Summary Get product
// @Tags Products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.ProductDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /productos-crud/{id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// Create godoc
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Param product body domain.ProductRequest true "Product"
// @Success 201 {object} domain.ProductDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /productos-crud [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	product, err := h.products.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create product")
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// Update godoc
// @Summary Update product
// @Tags Products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param product body domain.ProductRequest true "Product"
// @Success 200 {object} domain.ProductDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /productos-crud/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	product, err := h.products.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// Delete godoc
// @Summary Delete product
// @Tags Products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /productos-crud/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync godoc
// @Summary Import catalog entries from past order lines
// @Tags Products
// @Produce json
// @Success 200 {object} service.SyncResult
// @Security BearerAuth
// @Router /productos/sincronizar [post]
func (h *ProductHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.products.SyncFromOrders(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "sync products")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
