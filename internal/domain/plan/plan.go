// Package plan resolves subscription-plan quotas and answers whether one more
// resource may be created for a shop.
package plan

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Type is a subscription tier gating feature access and numeric quotas.
type Type string

const (
	Standard Type = "STANDARD"
	Advanced Type = "ADVANCED"
	Premium  Type = "PREMIUM"
)

// Valid reports whether the plan type is one of the known tiers.
func (t Type) Valid() bool {
	return t == Standard || t == Advanced || t == Premium
}

// Resource is a quota-gated resource category.
type Resource string

const (
	ResourceDiscount     Resource = "DISCOUNT"
	ResourceDiscountCode Resource = "DISCOUNT_CODE"
	ResourceProduct      Resource = "PRODUCT"
)

// Unlimited marks a quota with no cap.
const Unlimited = -1

// Limit is a named numeric quota row. Value of -1 means unlimited.
type Limit struct {
	CodeName string
	PlanType Type
	Value    int
}

// Check is the advisory answer to "is one more allowed". A concurrent
// creation racing past this check may over-admit by one.
type Check struct {
	Allowed bool
	Limit   int
	Current int
	Message string
}

// Repository provides quota rows and current resource counts.
type Repository interface {
	// FindLimit returns the limit row for the given code name, or nil when
	// no such row exists.
	FindLimit(ctx context.Context, codeName string) (*Limit, error)
	// CountActive returns the shop's current count of active resources in
	// the category.
	CountActive(ctx context.Context, shopID string, resource Resource) (int, error)
}

// CodeName builds the quota lookup key, e.g. "PREMIUM_DISCOUNT_LIMIT".
func CodeName(t Type, r Resource) string {
	return fmt.Sprintf("%s_%s_LIMIT", t, r)
}

// Guard answers quota questions. It is side-effect free and purely advisory.
type Guard struct {
	limits Repository
}

// NewGuard creates a Guard backed by the given repository.
func NewGuard(limits Repository) *Guard {
	return &Guard{limits: limits}
}

// CheckLimit resolves the quota for the (plan, resource) pair and reports
// whether the shop may create one more. A missing limit row or a value of -1
// means unlimited.
func (g *Guard) CheckLimit(ctx context.Context, shopID string, t Type, r Resource) (Check, error) {
	lim, err := g.limits.FindLimit(ctx, CodeName(t, r))
	if err != nil {
		return Check{}, errors.Wrap(err, "find limit")
	}
	if lim == nil || lim.Value == Unlimited {
		return Check{Allowed: true, Limit: Unlimited}, nil
	}

	current, err := g.limits.CountActive(ctx, shopID, r)
	if err != nil {
		return Check{}, errors.Wrap(err, "count active")
	}

	c := Check{
		Allowed: current < lim.Value,
		Limit:   lim.Value,
		Current: current,
	}
	if !c.Allowed {
		c.Message = fmt.Sprintf("plan %s allows at most %d active %s resources", t, lim.Value, r)
	}
	return c, nil
}
