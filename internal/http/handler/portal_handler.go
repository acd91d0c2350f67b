package handler

import (
	"net/http"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

// PortalHandler serves customers. Tracking-id routes are public; ListMine needs a customer login.
type PortalHandler struct {
	portal *service.PortalService
	orders *service.OrderService
	logger *zap.Logger
}

func NewPortalHandler(portal *service.PortalService, orders *service.OrderService, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{portal: portal, orders: orders, logger: logger}
}

// Get godoc
// @Summary View an order by tracking id
// @Description Expired quotes are rejected on read
// @Tags Portal
// @Produce json
// @Param tracking path string true "Tracking UUID"
// @Success 200 {object} domain.OrderDTO
// @Failure 404 {object} domain.APIError
// @Router /portal/pedidos/{tracking} [get]
func (h *PortalHandler) Get(w http.ResponseWriter, r *http.Request) {
	trackingID, ok := parseTrackingID(w, r)
	if !ok {
		return
	}
	order, err := h.portal.Get(r.Context(), trackingID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get portal order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Act godoc
// @Summary Accept or reject a quote
// @Tags Portal
// @Accept json
// @Produce json
// @Param tracking path string true "Tracking UUID"
// @Param action body domain.PortalActionRequest true "accept or reject"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /portal/pedidos/{tracking}/accion [post]
func (h *PortalHandler) Act(w http.ResponseWriter, r *http.Request) {
	trackingID, ok := parseTrackingID(w, r)
	if !ok {
		return
	}
	var req domain.PortalActionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.portal.Act(r.Context(), trackingID, req.Action)
	if err != nil {
		handleServiceError(w, h.logger, err, "apply portal action")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// SelectShipping godoc
// @Summary Choose a carrier
// @Tags Portal
// @Accept json
// @Produce json
// @Param tracking path string true "Tracking UUID"
// @Param shipping body domain.SelectShippingRequest true "Carrier"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /portal/pedidos/{tracking}/seleccionar-envio [post]
func (h *PortalHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	trackingID, ok := parseTrackingID(w, r)
	if !ok {
		return
	}
	var req domain.SelectShippingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.portal.SelectShipping(r.Context(), trackingID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "select shipping")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ConfirmReceipt godoc
// @Summary Confirm the order arrived
// @Tags Portal
// @Produce json
// @Param tracking path string true "Tracking UUID"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /portal/pedidos/{tracking}/confirmar-recepcion [post]
func (h *PortalHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	trackingID, ok := parseTrackingID(w, r)
	if !ok {
		return
	}
	order, err := h.portal.ConfirmReceipt(r.Context(), trackingID)
	if err != nil {
		handleServiceError(w, h.logger, err, "confirm receipt")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListMine godoc
// @Summary Orders of the logged-in customer
// @Tags Portal
// @Produce json
// @Success 200 {array} domain.OrderDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /portal/mis-pedidos [get]
func (h *PortalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list own orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}
