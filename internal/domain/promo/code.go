// Package promo implements redeemable discount codes: validation of a
// redemption attempt against window, usage, channel, customer and target
// restrictions, and the atomic usage accounting applied after order
// persistence.
package promo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/cart"
	"github.com/xenking/shopkit/internal/domain/discount"
)

// Sentinel errors for the sequential validation checks. Each one carries the
// user-facing reason so callers can render a specific message.
var (
	// ErrInvalidCode is returned when the code does not exist, belongs to a
	// different shop, or has been deactivated.
	ErrInvalidCode = errors.New("invalid discount code")
	// ErrNotYetActive is returned before the code's start date.
	ErrNotYetActive = errors.New("discount code is not yet active")
	// ErrExpired is returned after the code's end date.
	ErrExpired = errors.New("discount code has expired")
	// ErrUsageLimitReached is returned when the code has exhausted its uses.
	ErrUsageLimitReached = errors.New("discount code has reached its usage limit")
	// ErrChannelDenied is returned when the code is not enabled for the
	// requesting channel.
	ErrChannelDenied = errors.New("discount code is not available for this channel")
	// ErrCustomerDenied is returned when the code is restricted to another
	// customer.
	ErrCustomerDenied = errors.New("discount code is not available for your account")
	// ErrBadCodeFormat is returned when creating a code whose string does not
	// match the 6-16 character uppercase/digit/hyphen/underscore format.
	ErrBadCodeFormat = errors.New("discount code must be 6-16 characters of A-Z, 0-9, hyphen or underscore")
)

// TargetMismatchError means the code itself is valid but no cart line matches
// its targeting. CategoryName is set when the code targets a category.
type TargetMismatchError struct {
	CategoryName string
}

func (e *TargetMismatchError) Error() string {
	if e.CategoryName != "" {
		return fmt.Sprintf("discount code applies only to products in the %q category", e.CategoryName)
	}
	return "discount code does not apply to any item in the cart"
}

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{6,16}$`)

// NormalizeCode upper-cases and validates a raw code string.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", ErrBadCodeFormat
	}
	return code, nil
}

// Code is a redeemable discount code. UsageLimit of zero means unlimited;
// UsedCount only increases, and never past UsageLimit when one is set. The
// repository enforces that with a conditional increment.
type Code struct {
	ID               string
	ShopID           string
	Code             string
	Percentage       decimal.Decimal
	Active           bool
	StartDate        time.Time
	EndDate          time.Time
	UsageLimit       int
	UsedCount        int
	AvailableOnline  bool
	AvailableInStore bool
	// CustomerID restricts redemption to one customer when set.
	CustomerID string
	Target     discount.Target
	// CategoryName is denormalized from the target category for error
	// messages; empty unless the code is category-targeted.
	CategoryName string
}

// AvailableOn reports whether the code may be redeemed on the channel.
func (c *Code) AvailableOn(ch cart.Channel) bool {
	switch ch {
	case cart.ChannelOnline:
		return c.AvailableOnline
	case cart.ChannelInStore:
		return c.AvailableInStore
	default:
		return false
	}
}

// Storewide reports whether the code has no targeting and applies to all lines.
func (c *Code) Storewide() bool {
	return c.Target.Kind == discount.TargetStorewide
}

// Repository provides lookup and mutation of discount codes.
type Repository interface {
	// FindByCode looks up an active code by its string within a shop
	// (case-insensitive). Returns ErrInvalidCode when absent or inactive.
	FindByCode(ctx context.Context, shopID, code string) (*Code, error)
	// ApplyUsage atomically increments the usage counter, re-checking the
	// limit at increment time. Returns ErrUsageLimitReached when the last
	// slot was taken by a concurrent redemption.
	ApplyUsage(ctx context.Context, codeID string) error
	Create(ctx context.Context, c *Code) error
	// CountActive returns the number of active codes for plan quota checks.
	CountActive(ctx context.Context, shopID string) (int, error)
}
