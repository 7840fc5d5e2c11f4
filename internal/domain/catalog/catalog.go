// Package catalog defines the product catalog read model consumed by the
// discount and order services.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist or does not
// belong to the requesting shop.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item owned by a single shop. Inventory on the
// product row is only authoritative when the product has no variants.
type Product struct {
	ID          string
	ShopID      string
	Name        string
	Price       decimal.Decimal
	Inventory   int
	TaxRate     decimal.Decimal
	ExpiryDate  *time.Time
	CategoryIDs []string
	Variants    []Variant
	Active      bool
}

// Variant is a purchasable variation of a product with its own price,
// inventory and identifying codes.
type Variant struct {
	ID        string
	ProductID string
	Name      string
	Price     decimal.Decimal
	Inventory int
	SKU       string
	Barcode   string
	Options   map[string]string
}

// Category groups products within a shop.
type Category struct {
	ID     string
	ShopID string
	Name   string
}

// VariantByID returns the variant with the given ID, or nil.
func (p *Product) VariantByID(id string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// Repository defines read operations for the product catalog. All lookups are
// scoped to a shop; cross-shop access is not expressible through this
// interface.
type Repository interface {
	List(ctx context.Context, shopID string) ([]Product, error)
	GetByID(ctx context.Context, shopID, id string) (*Product, error)
	GetByIDs(ctx context.Context, shopID string, ids []string) ([]Product, error)
}
