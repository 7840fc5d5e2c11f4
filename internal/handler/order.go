package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/cart"
	"github.com/xenking/shopkit/internal/domain/order"
)

type orderLineRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Channel  string             `json:"channel"`
	Lines    []orderLineRequest `json:"lines"`
	Code     string             `json:"code,omitempty"`
	Shipping decimal.Decimal    `json:"shipping"`
}

type orderItemResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	VariantID       string          `json:"variantId,omitempty"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	Quantity        int             `json:"quantity"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customerId"`
	Channel       string              `json:"channel"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	Code          string              `json:"code,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	Tax           decimal.Decimal     `json:"tax"`
	Shipping      decimal.Decimal     `json:"shipping"`
	Total         decimal.Decimal     `json:"total"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ID:              it.ID,
			ProductID:       it.ProductID,
			VariantID:       it.VariantID,
			Name:            it.Name,
			UnitPrice:       it.UnitPrice,
			OriginalPrice:   it.OriginalPrice,
			DiscountPercent: it.DiscountPercent,
			DiscountAmount:  it.DiscountAmount,
			TaxRate:         it.TaxRate,
			Quantity:        it.Quantity,
		}
	}
	return orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Channel:       string(o.Channel),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Code:          o.Code,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		Tax:           o.Tax,
		Shipping:      o.Shipping,
		Total:         o.Total,
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ch := cart.Channel(req.Channel)
	if !ch.Valid() {
		writeError(w, http.StatusBadRequest, "channel must be ONLINE or IN_STORE")
		return
	}

	lines := make([]order.LineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.LineRequest{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		ShopID:     p.ShopID,
		CustomerID: p.ID,
		Channel:    ch,
		Lines:      lines,
		Code:       req.Code,
		Shipping:   req.Shipping,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), p.ShopID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Cancel(r.Context(), p.ShopID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

var knownStatuses = map[order.Status]bool{
	order.StatusPending:    true,
	order.StatusProcessing: true,
	order.StatusShipped:    true,
	order.StatusDelivered:  true,
	order.StatusCancelled:  true,
	order.StatusRefunded:   true,
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	next := order.Status(req.Status)
	if !knownStatuses[next] {
		writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), p.ShopID, r.PathValue("id"), next)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"paymentStatus"`
}

var knownPaymentStatuses = map[order.PaymentStatus]bool{
	order.PaymentPending:           true,
	order.PaymentPaid:              true,
	order.PaymentFailed:            true,
	order.PaymentRefunded:          true,
	order.PaymentPartiallyRefunded: true,
}

func (h *Handler) updateOrderPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req updatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	next := order.PaymentStatus(req.PaymentStatus)
	if !knownPaymentStatuses[next] {
		writeError(w, http.StatusBadRequest, "unknown payment status")
		return
	}

	o, err := h.orders.UpdatePayment(r.Context(), p.ShopID, r.PathValue("id"), next)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
