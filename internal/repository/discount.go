package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopkit/internal/domain/discount"
)

const (
	findActiveDiscountsSQL = `SELECT id, shop_id, name, percentage, enabled, start_date, end_date,
		available_online, available_in_store, category_id, product_ids, variant_ids
		FROM discounts
		WHERE shop_id = $1 AND enabled AND start_date <= $2 AND end_date >= $2
		ORDER BY id`

	createDiscountSQL = `INSERT INTO discounts (id, shop_id, name, percentage, enabled, start_date, end_date,
		available_online, available_in_store, category_id, product_ids, variant_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	countEnabledDiscountsSQL = `SELECT COUNT(*) FROM discounts WHERE shop_id = $1 AND enabled`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository using the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindActive returns the shop's enabled discounts whose window contains now.
func (r *DiscountRepository) FindActive(ctx context.Context, shopID string, now time.Time) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, findActiveDiscountsSQL, shopID, now)
	if err != nil {
		return nil, fmt.Errorf("finding active discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// Create persists a standing discount, flattening the target union into the
// nullable columns.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	categoryID, productIDs, variantIDs := flattenTarget(d.Target)

	_, err := r.pool.Exec(ctx, createDiscountSQL,
		d.ID, d.ShopID, d.Name, d.Percentage, d.Enabled, d.StartDate, d.EndDate,
		d.AvailableOnline, d.AvailableInStore, categoryID, productIDs, variantIDs,
	)
	if err != nil {
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}
	return nil
}

// CountEnabled returns the number of enabled discounts for plan quota checks.
func (r *DiscountRepository) CountEnabled(ctx context.Context, shopID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countEnabledDiscountsSQL, shopID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting enabled discounts: %w", err)
	}
	return n, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d          discount.Discount
		categoryID *string
		productIDs []string
		variantIDs []string
	)
	err := row.Scan(
		&d.ID, &d.ShopID, &d.Name, &d.Percentage, &d.Enabled, &d.StartDate, &d.EndDate,
		&d.AvailableOnline, &d.AvailableInStore, &categoryID, &productIDs, &variantIDs,
	)
	if err != nil {
		return d, errors.Wrap(err, "scan discount")
	}
	d.Target = buildTarget(categoryID, productIDs, variantIDs)
	return d, nil
}

// buildTarget resolves the nullable target columns into the tagged union once
// at load time.
func buildTarget(categoryID *string, productIDs, variantIDs []string) discount.Target {
	switch {
	case len(variantIDs) > 0:
		return discount.ForVariants(variantIDs...)
	case len(productIDs) > 0:
		return discount.ForProducts(productIDs...)
	case categoryID != nil && *categoryID != "":
		return discount.ForCategory(*categoryID)
	default:
		return discount.Storewide()
	}
}

// flattenTarget is the inverse of buildTarget for writes.
func flattenTarget(t discount.Target) (categoryID *string, productIDs, variantIDs []string) {
	productIDs = []string{}
	variantIDs = []string{}
	switch t.Kind {
	case discount.TargetCategory:
		categoryID = &t.CategoryID
	case discount.TargetProducts:
		productIDs = t.ProductIDs
	case discount.TargetVariants:
		variantIDs = t.VariantIDs
	}
	return categoryID, productIDs, variantIDs
}
