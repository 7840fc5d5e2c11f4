package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/catalog"
)

type variantResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Price     decimal.Decimal   `json:"price"`
	Inventory int               `json:"inventory"`
	SKU       string            `json:"sku,omitempty"`
	Barcode   string            `json:"barcode,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

type productResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Price       decimal.Decimal   `json:"price"`
	Inventory   int               `json:"inventory"`
	TaxRate     decimal.Decimal   `json:"taxRate"`
	ExpiryDate  *time.Time        `json:"expiryDate,omitempty"`
	CategoryIDs []string          `json:"categoryIds"`
	Variants    []variantResponse `json:"variants"`
}

func toProductResponse(p *catalog.Product) productResponse {
	variants := make([]variantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = variantResponse{
			ID:        v.ID,
			Name:      v.Name,
			Price:     v.Price,
			Inventory: v.Inventory,
			SKU:       v.SKU,
			Barcode:   v.Barcode,
			Options:   v.Options,
		}
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Inventory:   p.Inventory,
		TaxRate:     p.TaxRate,
		ExpiryDate:  p.ExpiryDate,
		CategoryIDs: p.CategoryIDs,
		Variants:    variants,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	products, err := h.catalog.List(r.Context(), p.ShopID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetByID(r.Context(), p.ShopID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}
