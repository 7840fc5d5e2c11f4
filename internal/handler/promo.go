package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/cart"
	"github.com/xenking/shopkit/internal/domain/order"
	"github.com/xenking/shopkit/internal/domain/plan"
	"github.com/xenking/shopkit/internal/domain/promo"
)

type validateCodeRequest struct {
	Code    string             `json:"code"`
	Channel string             `json:"channel"`
	Lines   []orderLineRequest `json:"lines"`
}

type validateCodeResponse struct {
	Valid           bool            `json:"valid"`
	Code            string          `json:"code"`
	Percentage      decimal.Decimal `json:"percentage"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	OrderTotal      decimal.Decimal `json:"orderTotal"`
	ApplicableLines []string        `json:"applicableLines"`
}

// validateCode runs a dry-run redemption check against the caller's cart. It
// never consumes a usage slot; that happens only when an order is placed.
func (h *Handler) validateCode(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req validateCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ch := cart.Channel(req.Channel)
	if !ch.Valid() {
		writeError(w, http.StatusBadRequest, "channel must be ONLINE or IN_STORE")
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, order.ErrEmptyLines.Error())
		return
	}

	lines, err := h.cartLines(r, p.ShopID, req.Lines)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.validator.Validate(r.Context(), p.ShopID, req.Code, ch, p.ID, lines)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	applicable := make([]string, len(result.ApplicableLines))
	for i, l := range result.ApplicableLines {
		applicable[i] = l.ProductID
	}
	writeJSON(w, http.StatusOK, validateCodeResponse{
		Valid:           true,
		Code:            result.Code.Code,
		Percentage:      result.Code.Percentage,
		DiscountAmount:  result.DiscountAmount,
		OrderTotal:      result.OrderTotal,
		ApplicableLines: applicable,
	})
}

// cartLines prices the requested lines from the catalog so the validator sees
// the same line shapes the order service builds.
func (h *Handler) cartLines(r *http.Request, shopID string, reqs []orderLineRequest) ([]cart.Line, error) {
	ids := make([]string, len(reqs))
	for i, l := range reqs {
		if l.Quantity <= 0 {
			return nil, &order.InvalidQuantityError{ProductID: l.ProductID}
		}
		ids[i] = l.ProductID
	}

	products, err := h.catalog.GetByIDs(r.Context(), shopID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(products))
	for i := range products {
		byID[products[i].ID] = i
	}

	lines := make([]cart.Line, len(reqs))
	for i, l := range reqs {
		idx, ok := byID[l.ProductID]
		if !ok || !products[idx].Active {
			return nil, &order.ProductNotFoundError{ProductID: l.ProductID}
		}
		p := &products[idx]

		price := p.Price
		if l.VariantID != "" {
			v := p.VariantByID(l.VariantID)
			if v == nil {
				return nil, &order.VariantNotFoundError{ProductID: l.ProductID, VariantID: l.VariantID}
			}
			price = v.Price
		}
		lines[i] = cart.Line{
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			CategoryIDs: p.CategoryIDs,
			UnitPrice:   price,
			Quantity:    l.Quantity,
		}
	}
	return lines, nil
}

type createCodeRequest struct {
	Code             string          `json:"code"`
	Percentage       decimal.Decimal `json:"percentage"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	UsageLimit       int             `json:"usageLimit"`
	AvailableOnline  bool            `json:"availableOnline"`
	AvailableInStore bool            `json:"availableInStore"`
	CustomerID       string          `json:"customerId,omitempty"`
	Target           targetRequest   `json:"target"`
}

func (h *Handler) createCode(w http.ResponseWriter, r *http.Request) {
	p, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req createCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code, err := promo.NormalizeCode(req.Code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if msg := validateDiscountWindow(req.Percentage, req.StartDate, req.EndDate); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.UsageLimit < 0 {
		writeError(w, http.StatusBadRequest, "usageLimit must be zero or positive")
		return
	}
	target, ok := req.Target.toDomain()
	if !ok {
		writeError(w, http.StatusBadRequest, "target may set at most one of categoryId, productIds, variantIds")
		return
	}

	check, err := h.guard.CheckLimit(r.Context(), p.ShopID, p.Plan, plan.ResourceDiscountCode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !check.Allowed {
		writeError(w, http.StatusForbidden, check.Message)
		return
	}

	c := &promo.Code{
		ID:               uuid.New().String(),
		ShopID:           p.ShopID,
		Code:             code,
		Percentage:       req.Percentage,
		Active:           true,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		UsageLimit:       req.UsageLimit,
		AvailableOnline:  req.AvailableOnline,
		AvailableInStore: req.AvailableInStore,
		CustomerID:       req.CustomerID,
		Target:           target,
	}
	if err := h.codes.Create(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID, "code": c.Code})
}
