// Package handler exposes the domain over HTTP. Handlers decode JSON,
// delegate to domain services and map domain errors onto the wire taxonomy;
// no business rules live here.
package handler

import (
	"net/http"

	"github.com/xenking/shopkit/internal/domain/catalog"
	"github.com/xenking/shopkit/internal/domain/discount"
	"github.com/xenking/shopkit/internal/domain/order"
	"github.com/xenking/shopkit/internal/domain/plan"
	"github.com/xenking/shopkit/internal/domain/promo"
)

// Handler holds the domain dependencies shared by all endpoints.
type Handler struct {
	catalog   catalog.Repository
	discounts discount.Repository
	codes     promo.Repository
	validator *promo.Validator
	orders    *order.Service
	guard     *plan.Guard
}

// New constructs a Handler with the required domain dependencies.
func New(
	catalogRepo catalog.Repository,
	discounts discount.Repository,
	codes promo.Repository,
	validator *promo.Validator,
	orders *order.Service,
	guard *plan.Guard,
) *Handler {
	return &Handler{
		catalog:   catalogRepo,
		discounts: discounts,
		codes:     codes,
		validator: validator,
		orders:    orders,
		guard:     guard,
	}
}

// Routes registers all API endpoints on the mux. Authentication happens in
// the surrounding middleware; handlers read the principal from the context.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.updateOrderStatus)
	mux.HandleFunc("PATCH /api/orders/{id}/payment", h.updateOrderPayment)

	mux.HandleFunc("POST /api/codes/validate", h.validateCode)
	mux.HandleFunc("POST /api/codes", h.createCode)

	mux.HandleFunc("POST /api/discounts", h.createDiscount)
}
