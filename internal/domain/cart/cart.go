// Package cart holds the line and channel types shared by the discount,
// promo, pricing and order packages.
package cart

import "github.com/shopspring/decimal"

// Channel identifies where a purchase originates.
type Channel string

const (
	// ChannelOnline marks checkouts coming from the storefront.
	ChannelOnline Channel = "ONLINE"
	// ChannelInStore marks point-of-sale purchases.
	ChannelInStore Channel = "IN_STORE"
)

// Valid reports whether the channel is one of the known values.
func (c Channel) Valid() bool {
	return c == ChannelOnline || c == ChannelInStore
}

// Line is one cart entry referencing a specific product or variant and a
// quantity. VariantID is empty when the product has no variants.
type Line struct {
	ProductID   string
	VariantID   string
	CategoryIDs []string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Extended returns price * quantity for the line.
func (l Line) Extended() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// InCategory reports whether the line's product belongs to the category.
func (l Line) InCategory(categoryID string) bool {
	for _, id := range l.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// Subtotal returns the sum of extended prices across all lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Extended())
	}
	return sum
}
