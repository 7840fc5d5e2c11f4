package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopkit/internal/domain/plan"
)

const (
	findLimitSQL = `SELECT code_name, COALESCE(plan_type, ''), value FROM system_limits WHERE code_name = $1`

	countActiveProductsSQL = `SELECT COUNT(*) FROM products WHERE shop_id = $1 AND active`
)

var _ plan.Repository = (*PlanRepository)(nil)

// PlanRepository implements plan.Repository backed by PostgreSQL. Counting
// delegates to the per-resource repositories' count queries so quota checks
// and list endpoints agree on what "active" means.
type PlanRepository struct {
	pool      *pgxpool.Pool
	discounts *DiscountRepository
	codes     *CodeRepository
}

// NewPlanRepository returns a PlanRepository using the given pool.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{
		pool:      pool,
		discounts: NewDiscountRepository(pool),
		codes:     NewCodeRepository(pool),
	}
}

// FindLimit returns the quota row for the code name, or nil when absent.
func (r *PlanRepository) FindLimit(ctx context.Context, codeName string) (*plan.Limit, error) {
	var lim plan.Limit
	err := r.pool.QueryRow(ctx, findLimitSQL, codeName).Scan(&lim.CodeName, &lim.PlanType, &lim.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding limit %q: %w", codeName, err)
	}
	return &lim, nil
}

// CountActive returns the shop's current count of active resources in the
// category.
func (r *PlanRepository) CountActive(ctx context.Context, shopID string, resource plan.Resource) (int, error) {
	switch resource {
	case plan.ResourceDiscount:
		return r.discounts.CountEnabled(ctx, shopID)
	case plan.ResourceDiscountCode:
		return r.codes.CountActive(ctx, shopID)
	case plan.ResourceProduct:
		var n int
		if err := r.pool.QueryRow(ctx, countActiveProductsSQL, shopID).Scan(&n); err != nil {
			return 0, fmt.Errorf("counting active products: %w", err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unknown resource %q", resource)
	}
}
