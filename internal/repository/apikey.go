package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopkit/internal/domain/auth"
)

const findAPIKeySQL = `SELECT k.id, k.key_hash, k.name, k.user_id, k.shop_id, k.role, s.plan_type
	FROM api_keys k
	JOIN shops s ON s.id = k.shop_id
	WHERE k.key_hash = $1 AND k.active AND s.active`

// ErrKeyNotFound is returned when no active API key matches the hash.
var ErrKeyNotFound = errors.New("api key not found")

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository using the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash resolves an active key hash to the principal bound to it. The
// shop's plan rides along so quota checks need no extra lookup.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var info auth.APIKeyInfo
	err := r.pool.QueryRow(ctx, findAPIKeySQL, hash).Scan(
		&info.ID, &info.KeyHash, &info.Name,
		&info.Principal.ID, &info.Principal.ShopID, &info.Principal.Role, &info.Principal.Plan,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding api key: %w", err)
	}
	return &info, nil
}
