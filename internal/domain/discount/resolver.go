package discount

import (
	"time"

	"github.com/xenking/shopkit/internal/domain/cart"
)

// matcher reports whether a target covers the line at one specificity level.
type matcher func(t Target, line cart.Line) bool

// matchers is the precedence order: exact variant beats exact product beats
// category membership beats storewide. Keeping the order in one list keeps
// the precedence rules declarative instead of scattered through nested
// conditionals.
var matchers = []matcher{
	matchVariant,
	matchProduct,
	matchCategory,
	matchStorewide,
}

func matchVariant(t Target, line cart.Line) bool {
	if t.Kind != TargetVariants || line.VariantID == "" {
		return false
	}
	for _, id := range t.VariantIDs {
		if id == line.VariantID {
			return true
		}
	}
	return false
}

func matchProduct(t Target, line cart.Line) bool {
	if t.Kind != TargetProducts {
		return false
	}
	for _, id := range t.ProductIDs {
		if id == line.ProductID {
			return true
		}
	}
	return false
}

func matchCategory(t Target, line cart.Line) bool {
	return t.Kind == TargetCategory && line.InCategory(t.CategoryID)
}

func matchStorewide(t Target, _ cart.Line) bool {
	return t.Kind == TargetStorewide
}

// Covers reports whether the target applies to the line at any specificity
// level. Storewide targets cover every line.
func (t Target) Covers(line cart.Line) bool {
	if t.Kind == TargetStorewide {
		return true
	}
	for _, match := range matchers {
		if match(t, line) {
			return true
		}
	}
	return false
}

// Resolver selects the single best applicable standing discount for a cart
// line. The zero value is not usable; construct with NewResolver.
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a Resolver using the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// WithClock overrides the resolver's clock. Intended for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the best discount among candidates for the line on the
// given channel, or nil when none applies. Candidates failing the window,
// enabled or channel checks are treated as absent, not errors. Matchers run
// in priority order and the first level with any match wins; within a level
// ties go to the highest percentage, then the earliest start date, then the
// lowest category ID, then the lowest discount ID for determinism.
func (r *Resolver) Resolve(line cart.Line, candidates []Discount, ch cart.Channel) *Discount {
	now := r.now()

	for _, match := range matchers {
		var best *Discount
		for i := range candidates {
			d := &candidates[i]
			if !d.ActiveAt(now) || !d.AvailableOn(ch) {
				continue
			}
			if !match(d.Target, line) {
				continue
			}
			if best == nil || betterThan(d, best) {
				best = d
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// betterThan ranks two applicable discounts of the same specificity level.
func betterThan(a, b *Discount) bool {
	if !a.Percentage.Equal(b.Percentage) {
		return a.Percentage.GreaterThan(b.Percentage)
	}
	if !a.StartDate.Equal(b.StartDate) {
		return a.StartDate.Before(b.StartDate)
	}
	if a.Target.CategoryID != b.Target.CategoryID {
		return a.Target.CategoryID < b.Target.CategoryID
	}
	return a.ID < b.ID
}
