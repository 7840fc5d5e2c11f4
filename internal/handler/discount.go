package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/discount"
	"github.com/xenking/shopkit/internal/domain/plan"
)

// targetRequest is the wire form of the discount target union. At most one
// field may be set; all empty means storewide.
type targetRequest struct {
	CategoryID string   `json:"categoryId,omitempty"`
	ProductIDs []string `json:"productIds,omitempty"`
	VariantIDs []string `json:"variantIds,omitempty"`
}

func (t targetRequest) toDomain() (discount.Target, bool) {
	set := 0
	if t.CategoryID != "" {
		set++
	}
	if len(t.ProductIDs) > 0 {
		set++
	}
	if len(t.VariantIDs) > 0 {
		set++
	}
	if set > 1 {
		return discount.Target{}, false
	}
	switch {
	case len(t.VariantIDs) > 0:
		return discount.ForVariants(t.VariantIDs...), true
	case len(t.ProductIDs) > 0:
		return discount.ForProducts(t.ProductIDs...), true
	case t.CategoryID != "":
		return discount.ForCategory(t.CategoryID), true
	default:
		return discount.Storewide(), true
	}
}

type createDiscountRequest struct {
	Name             string          `json:"name"`
	Percentage       decimal.Decimal `json:"percentage"`
	Enabled          bool            `json:"enabled"`
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	AvailableOnline  bool            `json:"availableOnline"`
	AvailableInStore bool            `json:"availableInStore"`
	Target           targetRequest   `json:"target"`
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	p, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req createDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateDiscountWindow(req.Percentage, req.StartDate, req.EndDate); err != "" {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target, ok := req.Target.toDomain()
	if !ok {
		writeError(w, http.StatusBadRequest, "target may set at most one of categoryId, productIds, variantIds")
		return
	}

	check, err := h.guard.CheckLimit(r.Context(), p.ShopID, p.Plan, plan.ResourceDiscount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !check.Allowed {
		writeError(w, http.StatusForbidden, check.Message)
		return
	}

	d := &discount.Discount{
		ID:               uuid.New().String(),
		ShopID:           p.ShopID,
		Name:             req.Name,
		Percentage:       req.Percentage,
		Enabled:          req.Enabled,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AvailableOnline:  req.AvailableOnline,
		AvailableInStore: req.AvailableInStore,
		Target:           target,
	}
	if err := h.discounts.Create(r.Context(), d); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": d.ID})
}

// validateDiscountWindow checks the shared percentage and window rules for
// discounts and codes. It returns an empty string when valid.
func validateDiscountWindow(pct decimal.Decimal, start, end time.Time) string {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	if pct.LessThan(one) || pct.GreaterThan(hundred) {
		return "percentage must be between 1 and 100"
	}
	if !end.After(start) {
		return "endDate must be after startDate"
	}
	return ""
}
