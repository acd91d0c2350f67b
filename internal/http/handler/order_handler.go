package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

// OrderHandler serves the staff panel: order detail and editing, work queues and lifecycle actions
type OrderHandler struct {
	orders    *service.OrderService
	quotes    *service.QuoteService
	lifecycle *service.OrderLifecycleService
	logger    *zap.Logger
}

func NewOrderHandler(orders *service.OrderService, quotes *service.QuoteService, lifecycle *service.OrderLifecycleService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		quotes:    quotes,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// List godoc
// @Summary List orders
// @Description Paginated order list, newest first
// @Tags Orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 200)" default(20)
// @Param status query string false "Comma separated statuses"
// @Param search query string false "Customer name, email or company"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.OrderDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos [get]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	result, err := h.orders.List(r.Context(), page, pageSize, q.Get("status"), q.Get("search"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list orders")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Queue returns the handler for one staff work queue
// @Summary Staff work queue
// @Description Orders in one workflow queue: solicitudes, cotizados, historial-cotizaciones, aceptados, historial-pagos, para-despachar, historial-despachos
// @Tags Orders
// @Produce json
// @Success 200 {array} domain.OrderDTO
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/solicitudes [get]
func (h *OrderHandler) Queue(queue service.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := h.orders.Queue(r.Context(), queue)
		if err != nil {
			handleServiceError(w, h.logger, err, "list "+string(queue))
			return
		}
		respondJSON(w, http.StatusOK, orders)
	}
}

// GetByID godoc
// @Summary Get order
// @Tags Orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.OrderDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id} [get]
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Update godoc
// @Summary Update order or edit quote
// @Description Partial update. Sending items edits the quote; the first edit of a request moves it to quoted.
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param order body domain.UpdateOrderRequest true "Fields to change"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id} [patch]
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.quotes.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Delete godoc
// @Summary Delete order
// @Tags Orders
// @Param id path int true "Order ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id} [delete]
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History godoc
// @Summary Order status history
// @Tags Orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {array} domain.OrderStatusHistoryDTO
// @Security BearerAuth
// @Router /pedidos/{id}/historial [get]
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	rows, err := h.orders.History(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get order history")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// SendQuote godoc
// @Summary Email the quote link to the customer
// @Tags Orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.MessageResponse
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id}/enviar-cotizacion [post]
func (h *OrderHandler) SendQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.quotes.SendQuote(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "send quote")
		return
	}
	respondJSON(w, http.StatusOK, domain.MessageResponse{Message: "Cotización enviada al cliente"})
}

// PDF godoc
// @Summary Download the quote PDF
// @Tags Orders
// @Produce application/pdf
// @Param id path int true "Order ID"
// @Success 200 {file} file
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id}/pdf [get]
func (h *OrderHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	body, filename, err := h.quotes.RenderPDF(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "generate quote pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ConfirmPayment godoc
// @Summary Confirm payment of an accepted order
// @Tags Lifecycle
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id}/confirmar-pago [post]
func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "confirm payment", h.lifecycle.ConfirmPayment)
}

// RejectPayment godoc
// @Summary Reject the payment of an accepted order
// @Tags Lifecycle
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id}/rechazar-pago [post]
func (h *OrderHandler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject payment", h.lifecycle.RejectPayment)
}

// Cancel godoc
// @Summary Cancel an open order
// @Tags Lifecycle
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id}/rechazar [post]
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel order", h.lifecycle.Cancel)
}

// MarkDispatched godoc
// @Summary Mark a paid order as dispatched
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param dispatch body domain.MarkDispatchedRequest true "Carrier and waybill"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pedidos/{id}/marcar-despachado [post]
func (h *OrderHandler) MarkDispatched(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req domain.MarkDispatchedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.lifecycle.MarkDispatched(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "mark dispatched")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, action string, apply func(ctx context.Context, id uint) (*domain.OrderDTO, error)) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	order, err := apply(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, action)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
