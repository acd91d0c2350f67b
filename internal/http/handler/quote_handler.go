package handler

import (
	"net/http"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"go.uber.org/zap"
)

// QuoteHandler serves the public quote form and shipping calculator
type QuoteHandler struct {
	quotes   *service.QuoteService
	shipping *service.ShippingService
	logger   *zap.Logger
}

func NewQuoteHandler(quotes *service.QuoteService, shipping *service.ShippingService, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, shipping: shipping, logger: logger}
}

// Submit godoc
// @Summary Request a quote
// @Description Public form. Creates or reuses the customer by email and opens an order in state request.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.SubmitQuoteRequest true "Customer and requested items"
// @Success 201 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 429 {object} domain.APIError
// @Router /solicitudes [post]
func (h *QuoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitQuoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.quotes.Submit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "submit quote request")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// EstimateShipping godoc
// @Summary Estimate shipping per carrier
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.ShippingEstimateRequest true "Destination commune"
// @Success 200 {object} domain.ShippingQuoteDTO
// @Failure 400 {object} domain.APIError
// @Router /cotizacion/calcular-envio [post]
func (h *QuoteHandler) EstimateShipping(w http.ResponseWriter, r *http.Request) {
	var req domain.ShippingEstimateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	quote, err := h.shipping.Estimate(req.Commune)
	if err != nil {
		handleServiceError(w, h.logger, err, "estimate shipping")
		return
	}
	respondJSON(w, http.StatusOK, quote)
}
