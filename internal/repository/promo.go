package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopkit/internal/domain/promo"
)

const (
	findCodeSQL = `SELECT dc.id, dc.shop_id, dc.code, dc.percentage, dc.active, dc.start_date, dc.end_date,
		dc.usage_limit, dc.used_count, dc.available_online, dc.available_in_store,
		COALESCE(dc.customer_id, ''), dc.category_id, dc.product_ids, dc.variant_ids,
		COALESCE(c.name, '')
		FROM discount_codes dc
		LEFT JOIN categories c ON c.id = dc.category_id
		WHERE dc.shop_id = $1 AND dc.code = $2 AND dc.active`

	// The limit is re-checked inside the UPDATE so two concurrent redemptions
	// of the last slot resolve to exactly one winner.
	applyCodeUsageSQL = `UPDATE discount_codes
		SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR used_count < usage_limit)`

	createCodeSQL = `INSERT INTO discount_codes (id, shop_id, code, percentage, active, start_date, end_date,
		usage_limit, used_count, available_online, available_in_store, customer_id, category_id, product_ids, variant_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15)`

	countActiveCodesSQL = `SELECT COUNT(*) FROM discount_codes WHERE shop_id = $1 AND active`
)

var _ promo.Repository = (*CodeRepository)(nil)

// CodeRepository implements promo.Repository backed by PostgreSQL.
type CodeRepository struct {
	pool *pgxpool.Pool
}

// NewCodeRepository returns a CodeRepository using the given pool.
func NewCodeRepository(pool *pgxpool.Pool) *CodeRepository {
	return &CodeRepository{pool: pool}
}

// FindByCode looks up an active code within the shop. The code string is
// expected to be normalized already.
func (r *CodeRepository) FindByCode(ctx context.Context, shopID, code string) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, findCodeSQL, shopID, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount code: %w", err)
	}
	c, err := pgx.CollectOneRow(rows, scanCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promo.ErrInvalidCode
	}
	if err != nil {
		return nil, fmt.Errorf("finding discount code: %w", err)
	}
	return &c, nil
}

// ApplyUsage increments the usage counter with the limit re-checked at
// increment time.
func (r *CodeRepository) ApplyUsage(ctx context.Context, codeID string) error {
	tag, err := r.pool.Exec(ctx, applyCodeUsageSQL, codeID)
	if err != nil {
		return fmt.Errorf("applying code usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrUsageLimitReached
	}
	return nil
}

// Create persists a new discount code.
func (r *CodeRepository) Create(ctx context.Context, c *promo.Code) error {
	categoryID, productIDs, variantIDs := flattenTarget(c.Target)

	_, err := r.pool.Exec(ctx, createCodeSQL,
		c.ID, c.ShopID, c.Code, c.Percentage, c.Active, c.StartDate, c.EndDate,
		c.UsageLimit, c.UsedCount, c.AvailableOnline, c.AvailableInStore,
		c.CustomerID, categoryID, productIDs, variantIDs,
	)
	if err != nil {
		return fmt.Errorf("creating discount code %q: %w", c.Code, err)
	}
	return nil
}

// CountActive returns the number of active codes for plan quota checks.
func (r *CodeRepository) CountActive(ctx context.Context, shopID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countActiveCodesSQL, shopID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting active codes: %w", err)
	}
	return n, nil
}

func scanCode(row pgx.CollectableRow) (promo.Code, error) {
	var (
		c          promo.Code
		categoryID *string
		productIDs []string
		variantIDs []string
	)
	err := row.Scan(
		&c.ID, &c.ShopID, &c.Code, &c.Percentage, &c.Active, &c.StartDate, &c.EndDate,
		&c.UsageLimit, &c.UsedCount, &c.AvailableOnline, &c.AvailableInStore,
		&c.CustomerID, &categoryID, &productIDs, &variantIDs, &c.CategoryName,
	)
	if err != nil {
		return c, errors.Wrap(err, "scan code")
	}
	c.Target = buildTarget(categoryID, productIDs, variantIDs)
	return c, nil
}
