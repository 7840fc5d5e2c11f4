package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of a successful validation. The discount amount is
// scoped strictly to the applicable lines; non-applicable lines contribute to
// the subtotal untouched.
type Result struct {
	Code            *Code
	ApplicableLines []cart.Line
	DiscountAmount  decimal.Decimal
	OrderTotal      decimal.Decimal
}

// AppliesTo reports whether the validated code covers the given line.
func (r *Result) AppliesTo(line cart.Line) bool {
	for _, l := range r.ApplicableLines {
		if l.ProductID == line.ProductID && l.VariantID == line.VariantID {
			return true
		}
	}
	return false
}

// Validator validates redemption attempts. Validation is advisory with
// respect to the usage limit: the authoritative check happens in
// Repository.ApplyUsage, after the order is persisted.
type Validator struct {
	codes Repository
	now   func() time.Time
}

// NewValidator creates a Validator using the wall clock.
func NewValidator(codes Repository) *Validator {
	return &Validator{codes: codes, now: time.Now}
}

// WithClock overrides the validator's clock. Intended for tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs the sequential redemption checks, short-circuiting on the
// first failure: format, existence/ownership, date window, usage limit,
// channel, customer restriction, and finally targeting against the cart lines.
func (v *Validator) Validate(
	ctx context.Context,
	shopID, code string,
	ch cart.Channel,
	customerID string,
	lines []cart.Line,
) (*Result, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	c, err := v.codes.FindByCode(ctx, shopID, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup code")
	}

	now := v.now()
	if now.Before(c.StartDate) {
		return nil, ErrNotYetActive
	}
	if now.After(c.EndDate) {
		return nil, ErrExpired
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if !c.AvailableOn(ch) {
		return nil, ErrChannelDenied
	}

	if c.CustomerID != "" && c.CustomerID != customerID {
		return nil, ErrCustomerDenied
	}

	applicable := applicableLines(c, lines)
	if len(applicable) == 0 {
		return nil, &TargetMismatchError{CategoryName: c.CategoryName}
	}

	amount := decimal.Zero
	for _, l := range applicable {
		amount = amount.Add(l.Extended())
	}
	amount = amount.Mul(c.Percentage).Div(hundred).Round(2)

	total := cart.Subtotal(lines).Sub(amount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Result{
		Code:            c,
		ApplicableLines: applicable,
		DiscountAmount:  amount,
		OrderTotal:      total.Round(2),
	}, nil
}

// applicableLines computes the subset of lines the code's target covers.
// A code without targeting applies storewide. Matching follows target
// specificity: variant membership, then product membership, then category.
func applicableLines(c *Code, lines []cart.Line) []cart.Line {
	if c.Storewide() {
		return lines
	}

	out := make([]cart.Line, 0, len(lines))
	for _, l := range lines {
		if c.Target.Covers(l) {
			out = append(out, l)
		}
	}
	return out
}
