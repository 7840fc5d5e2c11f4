package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/shopkit/internal/domain/cart"
	"github.com/xenking/shopkit/internal/domain/catalog"
	"github.com/xenking/shopkit/internal/domain/discount"
	"github.com/xenking/shopkit/internal/domain/pricing"
	"github.com/xenking/shopkit/internal/domain/promo"
)

// LineRequest is one requested order line. VariantID must be set when the
// product has variants.
type LineRequest struct {
	ProductID string
	VariantID string
	Quantity  int
}

// PlaceOrderRequest holds the input for creating an order.
type PlaceOrderRequest struct {
	ShopID     string
	CustomerID string
	Channel    cart.Channel
	Lines      []LineRequest
	Code       string
	Shipping   decimal.Decimal
}

// VariantNotFoundError indicates a requested variant does not exist on the
// product.
type VariantNotFoundError struct {
	ProductID string
	VariantID string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant %s not found on product %s", e.VariantID, e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist in the
// shop's catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Service is the order lifecycle manager. It composes the discount resolver,
// code validator and pricing calculator on creation, and owns every inventory
// mutation made during lifecycle transitions.
type Service struct {
	catalog   catalog.Repository
	discounts discount.Repository
	resolver  *discount.Resolver
	validator *promo.Validator
	orders    Repository
	notifier  Notifier
	lg        *zap.Logger
	now       func() time.Time
	placed    metric.Int64Counter
}

// NewService creates the lifecycle manager with its domain dependencies.
func NewService(
	catalogRepo catalog.Repository,
	discounts discount.Repository,
	resolver *discount.Resolver,
	validator *promo.Validator,
	orders Repository,
	notifier Notifier,
	lg *zap.Logger,
) *Service {
	return &Service{
		catalog:   catalogRepo,
		discounts: discounts,
		resolver:  resolver,
		validator: validator,
		orders:    orders,
		notifier:  notifier,
		lg:        lg,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithMetrics attaches the orders-placed counter.
func (s *Service) WithMetrics(placed metric.Int64Counter) *Service {
	s.placed = placed
	return s
}

// PlaceOrder builds cart lines from the catalog, resolves standing discounts
// per line, validates an optional code, prices everything, and persists the
// order with inventory debits and code-usage accounting in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("shop.id", req.ShopID),
		attribute.Int("order.lines", len(req.Lines)),
	)

	ids := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		if l.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: l.ProductID}
		}
		ids[i] = l.ProductID
	}

	fetched, err := s.catalog.GetByIDs(ctx, req.ShopID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*catalog.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	// Build cart lines, recording the snapshot name alongside each.
	lines := make([]cart.Line, len(req.Lines))
	names := make([]string, len(req.Lines))
	taxRates := make([]decimal.Decimal, len(req.Lines))
	for i, l := range req.Lines {
		p, ok := byID[l.ProductID]
		if !ok || !p.Active {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}

		price := p.Price
		name := p.Name
		if l.VariantID != "" {
			v := p.VariantByID(l.VariantID)
			if v == nil {
				return nil, &VariantNotFoundError{ProductID: l.ProductID, VariantID: l.VariantID}
			}
			price = v.Price
			name = fmt.Sprintf("%s (%s)", p.Name, v.Name)
		}

		lines[i] = cart.Line{
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			CategoryIDs: p.CategoryIDs,
			UnitPrice:   price,
			Quantity:    l.Quantity,
		}
		names[i] = name
		taxRates[i] = p.TaxRate
	}

	// Standing discounts: pick the best applicable percentage per line.
	candidates, err := s.discounts.FindActive(ctx, req.ShopID, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "find active discounts")
	}

	standing := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		if d := s.resolver.Resolve(line, candidates, req.Channel); d != nil {
			standing[i] = d.Percentage
		} else {
			standing[i] = decimal.Zero
		}
	}

	// Optional code. Validation failures abort the order with the specific
	// redemption error.
	var redemption *promo.Result
	if req.Code != "" {
		redemption, err = s.validator.Validate(ctx, req.ShopID, req.Code, req.Channel, req.CustomerID, lines)
		if err != nil {
			return nil, err
		}
	}

	// Price every line. A standing discount and a redeemed code never stack:
	// the higher percentage wins per line.
	priced := make([]pricing.Line, len(lines))
	items := make([]Item, len(lines))
	for i, line := range lines {
		pct := standing[i]
		if redemption != nil && redemption.AppliesTo(line) {
			pct = pricing.EffectivePercent(pct, redemption.Code.Percentage)
		}

		priced[i] = pricing.PriceLine(line.UnitPrice, line.Quantity, pct, taxRates[i])
		items[i] = Item{
			ID:              uuid.New().String(),
			ProductID:       line.ProductID,
			VariantID:       line.VariantID,
			Name:            names[i],
			UnitPrice:       priced[i].UnitPrice,
			OriginalPrice:   line.UnitPrice,
			DiscountPercent: pct,
			DiscountAmount:  priced[i].DiscountAmount,
			TaxRate:         taxRates[i],
			Quantity:        line.Quantity,
		}
	}

	totals := pricing.Summarize(priced, req.Shipping)

	o := &Order{
		ID:            uuid.New().String(),
		ShopID:        req.ShopID,
		CustomerID:    req.CustomerID,
		Channel:       req.Channel,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Tax:           totals.Tax,
		Shipping:      totals.Shipping,
		Total:         totals.Total,
		Items:         items,
		CreatedAt:     s.now(),
	}

	usedCodeID := ""
	if redemption != nil {
		o.Code = redemption.Code.Code
		usedCodeID = redemption.Code.ID
	}

	// Order row, item snapshots, conditional inventory debits and the code
	// usage increment commit or roll back together.
	if err := s.orders.Create(ctx, o, usedCodeID); err != nil {
		return nil, err
	}

	if s.placed != nil {
		s.placed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("channel", string(req.Channel)),
		))
	}
	s.lg.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("shop_id", o.ShopID),
		zap.String("total", o.Total.String()),
	)
	return o, nil
}

// Cancel moves the order to CANCELLED, marks the payment failed, credits
// inventory back per the original item snapshots, and emits one notification.
// The status flip and the inventory credits share one repository transaction,
// so a failure leaves the order untouched and a retry credits stock exactly
// once. Cancelling an already-cancelled order is a no-op.
func (s *Service) Cancel(ctx context.Context, shopID, orderID string) (*Order, error) {
	o, err := s.orders.Get(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status == StatusCancelled {
		return o, nil
	}
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return nil, &IllegalTransitionError{From: string(o.Status), To: string(StatusCancelled)}
	}

	applied, err := s.orders.Cancel(ctx, o.ID, o.Status, o.Items)
	if err != nil {
		return nil, errors.Wrap(err, "cancel order")
	}
	if !applied {
		// Lost a race with a concurrent transition. Re-read: a concurrent
		// cancel makes this call an idempotent no-op, anything else is illegal.
		o, err = s.orders.Get(ctx, shopID, orderID)
		if err != nil {
			return nil, err
		}
		if o.Status == StatusCancelled {
			return o, nil
		}
		return nil, &IllegalTransitionError{From: string(o.Status), To: string(StatusCancelled)}
	}

	o.Status = StatusCancelled
	o.PaymentStatus = PaymentFailed

	s.notify(ctx, o.ShopID, o.CustomerID,
		"Order cancelled",
		fmt.Sprintf("Order %s has been cancelled", o.ID),
		"ORDER_CANCELLED",
	)
	return o, nil
}

// UpdateStatus applies a fulfillment transition. Setting the current status
// again is a silent no-op; an illegal jump is rejected; a genuine change
// fires a notification with the new status. Cancellation is delegated to
// Cancel so inventory is credited.
func (s *Service) UpdateStatus(ctx context.Context, shopID, orderID string, next Status) (*Order, error) {
	if next == StatusCancelled {
		return s.Cancel(ctx, shopID, orderID)
	}

	o, err := s.orders.Get(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status == next {
		return o, nil
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, &IllegalTransitionError{From: string(o.Status), To: string(next)}
	}

	applied, err := s.orders.TransitionStatus(ctx, o.ID, o.Status, next)
	if err != nil {
		return nil, errors.Wrap(err, "transition status")
	}
	if !applied {
		o, err = s.orders.Get(ctx, shopID, orderID)
		if err != nil {
			return nil, err
		}
		if o.Status == next {
			return o, nil
		}
		return nil, &IllegalTransitionError{From: string(o.Status), To: string(next)}
	}

	o.Status = next
	s.notify(ctx, o.ShopID, o.CustomerID,
		"Order updated",
		fmt.Sprintf("Order %s is now %s", o.ID, next),
		"ORDER_STATUS",
	)
	return o, nil
}

// UpdatePayment applies a payment transition independent of fulfillment.
func (s *Service) UpdatePayment(ctx context.Context, shopID, orderID string, next PaymentStatus) (*Order, error) {
	o, err := s.orders.Get(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}

	if o.PaymentStatus == next {
		return o, nil
	}
	if !o.PaymentStatus.CanTransitionTo(next) {
		return nil, &IllegalTransitionError{From: string(o.PaymentStatus), To: string(next)}
	}

	applied, err := s.orders.TransitionPayment(ctx, o.ID, o.PaymentStatus, next)
	if err != nil {
		return nil, errors.Wrap(err, "transition payment")
	}
	if !applied {
		o, err = s.orders.Get(ctx, shopID, orderID)
		if err != nil {
			return nil, err
		}
		if o.PaymentStatus == next {
			return o, nil
		}
		return nil, &IllegalTransitionError{From: string(o.PaymentStatus), To: string(next)}
	}

	o.PaymentStatus = next
	return o, nil
}

// Get returns an order with its item snapshots.
func (s *Service) Get(ctx context.Context, shopID, orderID string) (*Order, error) {
	return s.orders.Get(ctx, shopID, orderID)
}

// notify delivers a notification and logs delivery failures instead of
// propagating them.
func (s *Service) notify(ctx context.Context, shopID, userID, title, message, kind string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, shopID, userID, title, message, kind); err != nil {
		s.lg.Warn("notification delivery failed",
			zap.String("shop_id", shopID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
