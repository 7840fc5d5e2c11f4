// Package order owns the order state machine, inventory debit/credit on
// creation and cancellation, and discount-code usage accounting.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/cart"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// PaymentStatus tracks payment independently of fulfillment.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// statusTransitions is the allowed fulfillment transition table. The happy
// path is forward-only; cancellation is reachable from every non-terminal
// pre-delivery state; a delivered order can only be refunded.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// paymentTransitions is the allowed payment transition table.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:           {PaymentPaid, PaymentFailed},
	PaymentPaid:              {PaymentRefunded, PaymentPartiallyRefunded},
	PaymentPartiallyRefunded: {PaymentRefunded},
	PaymentFailed:            {},
	PaymentRefunded:          {},
}

// CanTransitionTo reports whether the fulfillment transition is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further fulfillment transitions exist.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// CanTransitionTo reports whether the payment transition is legal.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, t := range paymentTransitions[p] {
		if t == next {
			return true
		}
	}
	return false
}

// Errors returned by the lifecycle operations.
var (
	ErrEmptyLines = errors.New("order lines required")
	ErrNotFound   = errors.New("order not found")
)

// IllegalTransitionError rejects a status jump not present in the
// transition tables.
type IllegalTransitionError struct {
	From, To string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.From, e.To)
}

// InsufficientStockError reports the first line whose conditional inventory
// decrement failed at debit time.
type InsufficientStockError struct {
	ProductID string
	VariantID string
}

func (e *InsufficientStockError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("insufficient stock for variant %s", e.VariantID)
	}
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

// InvalidQuantityError rejects a non-positive line quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Item is an immutable line snapshot taken at purchase time. It stores the
// product/variant name and prices as they were, so the line survives later
// catalog edits or deletions.
type Item struct {
	ID              string
	ProductID       string
	VariantID       string
	Name            string
	UnitPrice       decimal.Decimal
	OriginalPrice   decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxRate         decimal.Decimal
	Quantity        int
}

// Order belongs to one shop and one customer. Totals are computed once at
// creation and never recomputed from live product prices.
type Order struct {
	ID            string
	ShopID        string
	CustomerID    string
	Channel       cart.Channel
	Status        Status
	PaymentStatus PaymentStatus
	Code          string
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	Items         []Item
	CreatedAt     time.Time
}

// Repository defines persistence for orders. Inventory mutation goes
// exclusively through Create and Cancel; no other writer may touch
// inventory during lifecycle transitions.
type Repository interface {
	// Create persists the order and its item snapshots, debits inventory per
	// line via a conditional decrement (variant inventory when the line is
	// variant-scoped, else product inventory), and, when usedCodeID is
	// non-empty, increments the code's usage counter with its limit
	// re-checked, all inside one transaction. A failed decrement aborts
	// everything and surfaces as *InsufficientStockError; a lost usage race
	// surfaces as promo.ErrUsageLimitReached.
	Create(ctx context.Context, o *Order, usedCodeID string) error

	Get(ctx context.Context, shopID, id string) (*Order, error)

	// TransitionStatus sets the fulfillment status only while the row's
	// current status still equals from. Reports whether the update applied,
	// so concurrent transitions resolve to exactly one winner.
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// TransitionPayment is the payment-machine counterpart of TransitionStatus.
	TransitionPayment(ctx context.Context, id string, from, to PaymentStatus) (bool, error)

	// Cancel moves the order from the given status to CANCELLED with payment
	// FAILED and credits inventory back for the item snapshots, all inside
	// one transaction: either the flip and every credit commit together, or
	// none of them do. Items referencing deleted products or variants are a
	// no-op, not an error. Reports whether the flip applied; false means the
	// row was no longer in the expected status and nothing was credited.
	Cancel(ctx context.Context, id string, from Status, items []Item) (bool, error)
}

// Notifier delivers user-facing notifications. Calls are fire-and-forget from
// the lifecycle's perspective; a delivery failure never fails the transition
// that triggered it.
type Notifier interface {
	Notify(ctx context.Context, shopID, userID, title, message, kind string) error
}
