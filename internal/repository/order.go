package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopkit/internal/domain/order"
	"github.com/xenking/shopkit/internal/domain/promo"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, shop_id, customer_id, channel, status, payment_status, code,
		subtotal, discount, tax, shipping, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, variant_id, name,
		unit_price, original_price, discount_percent, discount_amount, tax_rate, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	// Conditional decrements: zero rows affected means the stock ran out
	// between the service-level read and the debit.
	debitVariantSQL = `UPDATE product_variants SET inventory = inventory - $2
		WHERE id = $1 AND inventory >= $2`

	debitProductSQL = `UPDATE products SET inventory = inventory - $2
		WHERE id = $1 AND inventory >= $2`

	creditVariantSQL = `UPDATE product_variants SET inventory = inventory + $2 WHERE id = $1`

	creditProductSQL = `UPDATE products SET inventory = inventory + $2 WHERE id = $1`

	getOrderSQL = `SELECT id, shop_id, customer_id, channel, status, payment_status, code,
		subtotal, discount, tax, shipping, total, created_at
		FROM orders WHERE shop_id = $1 AND id = $2`

	getOrderItemsSQL = `SELECT id, product_id, variant_id, name, unit_price, original_price,
		discount_percent, discount_amount, tax_rate, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`

	transitionStatusSQL = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	cancelOrderSQL = `UPDATE orders SET status = $3, payment_status = $4
		WHERE id = $1 AND status = $2`

	transitionPaymentSQL = `UPDATE orders SET payment_status = $3
		WHERE id = $1 AND payment_status = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository using the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order with its item snapshots, debits inventory per
// line, and claims a code usage slot when usedCodeID is non-empty. Any failed
// step rolls back the whole transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, usedCodeID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.ShopID, o.CustomerID, o.Channel, o.Status, o.PaymentStatus, o.Code,
		o.Subtotal, o.Discount, o.Tax, o.Shipping, o.Total, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			it.ID, o.ID, it.ProductID, it.VariantID, it.Name,
			it.UnitPrice, it.OriginalPrice, it.DiscountPercent, it.DiscountAmount,
			it.TaxRate, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}

		if err := debitInventory(ctx, tx, it); err != nil {
			return err
		}
	}

	if usedCodeID != "" {
		tag, err := tx.Exec(ctx, applyCodeUsageSQL, usedCodeID)
		if err != nil {
			return fmt.Errorf("applying code usage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return promo.ErrUsageLimitReached
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order: %w", err)
	}
	return nil
}

func debitInventory(ctx context.Context, tx pgx.Tx, it order.Item) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if it.VariantID != "" {
		tag, err = tx.Exec(ctx, debitVariantSQL, it.VariantID, it.Quantity)
	} else {
		tag, err = tx.Exec(ctx, debitProductSQL, it.ProductID, it.Quantity)
	}
	if err != nil {
		return fmt.Errorf("debiting inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &order.InsufficientStockError{ProductID: it.ProductID, VariantID: it.VariantID}
	}
	return nil
}

// Get returns the order with its item snapshots, scoped to the shop.
func (r *OrderRepository) Get(ctx context.Context, shopID, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, shopID, id)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o, err := pgx.CollectOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	return &o, nil
}

// TransitionStatus applies the fulfillment transition only if the row is
// still in the expected state.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from, to order.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, transitionStatusSQL, id, from, to)
	if err != nil {
		return false, fmt.Errorf("transitioning order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TransitionPayment applies the payment transition only if the row is still
// in the expected state.
func (r *OrderRepository) TransitionPayment(ctx context.Context, id string, from, to order.PaymentStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, transitionPaymentSQL, id, from, to)
	if err != nil {
		return false, fmt.Errorf("transitioning payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel flips the order to CANCELLED with payment FAILED and credits stock
// back for the cancelled item snapshots in the same transaction, so a failed
// credit rolls the flip back too and a retry starts from a clean row. The
// flip is conditional on the row still being in the expected status; when it
// does not apply nothing is credited. Credit rows for products or variants
// deleted since purchase simply match nothing.
func (r *OrderRepository) Cancel(ctx context.Context, id string, from order.Status, items []order.Item) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, cancelOrderSQL, id, from, order.StatusCancelled, order.PaymentFailed)
	if err != nil {
		return false, fmt.Errorf("cancelling order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for _, it := range items {
		if it.VariantID != "" {
			_, err = tx.Exec(ctx, creditVariantSQL, it.VariantID, it.Quantity)
		} else {
			_, err = tx.Exec(ctx, creditProductSQL, it.ProductID, it.Quantity)
		}
		if err != nil {
			return false, fmt.Errorf("restoring inventory: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing cancellation: %w", err)
	}
	return true, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.ShopID, &o.CustomerID, &o.Channel, &o.Status, &o.PaymentStatus, &o.Code,
		&o.Subtotal, &o.Discount, &o.Tax, &o.Shipping, &o.Total, &o.CreatedAt,
	)
	if err != nil {
		return o, errors.Wrap(err, "scan order")
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.ProductID, &it.VariantID, &it.Name, &it.UnitPrice, &it.OriginalPrice,
		&it.DiscountPercent, &it.DiscountAmount, &it.TaxRate, &it.Quantity,
	)
	if err != nil {
		return it, errors.Wrap(err, "scan order item")
	}
	return it, nil
}
