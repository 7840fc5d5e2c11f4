// Package discount implements standing percentage discounts and the
// precedence rules that select the best applicable discount for a cart line.
package discount

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/cart"
)

// TargetKind discriminates the discount target union.
type TargetKind uint8

const (
	// TargetStorewide applies to every product in the shop.
	TargetStorewide TargetKind = iota
	// TargetProducts applies to an explicit set of products (all variants).
	TargetProducts
	// TargetVariants applies to an explicit set of variants.
	TargetVariants
	// TargetCategory applies to all products in a single category.
	TargetCategory
)

// Target is a tagged union resolved once at load time: a discount applies
// storewide, to a set of products, to a set of variants, or to one category.
// Exactly the fields matching Kind are populated.
type Target struct {
	Kind       TargetKind
	ProductIDs []string
	VariantIDs []string
	CategoryID string
}

// Storewide returns a target matching every line.
func Storewide() Target { return Target{Kind: TargetStorewide} }

// ForProducts returns a target matching the given product IDs.
func ForProducts(ids ...string) Target {
	return Target{Kind: TargetProducts, ProductIDs: ids}
}

// ForVariants returns a target matching the given variant IDs.
func ForVariants(ids ...string) Target {
	return Target{Kind: TargetVariants, VariantIDs: ids}
}

// ForCategory returns a target matching products in the given category.
func ForCategory(id string) Target {
	return Target{Kind: TargetCategory, CategoryID: id}
}

// Discount is a standing percentage markdown, active within its date window,
// no code required.
type Discount struct {
	ID               string
	ShopID           string
	Name             string
	Percentage       decimal.Decimal
	Enabled          bool
	StartDate        time.Time
	EndDate          time.Time
	AvailableOnline  bool
	AvailableInStore bool
	Target           Target
}

// ActiveAt reports whether the discount is enabled and inside its window.
func (d *Discount) ActiveAt(now time.Time) bool {
	return d.Enabled && !now.Before(d.StartDate) && !now.After(d.EndDate)
}

// AvailableOn reports whether the discount may be applied on the channel.
func (d *Discount) AvailableOn(ch cart.Channel) bool {
	switch ch {
	case cart.ChannelOnline:
		return d.AvailableOnline
	case cart.ChannelInStore:
		return d.AvailableInStore
	default:
		return false
	}
}

// Repository provides persistence for standing discounts.
type Repository interface {
	// FindActive returns the shop's enabled discounts whose window contains now.
	FindActive(ctx context.Context, shopID string, now time.Time) ([]Discount, error)
	Create(ctx context.Context, d *Discount) error
	// CountEnabled returns the number of enabled discounts for plan quota checks.
	CountEnabled(ctx context.Context, shopID string) (int, error)
}
