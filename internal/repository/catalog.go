package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/shopkit/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT p.id, p.shop_id, p.name, p.price, p.inventory, p.tax_rate, p.expiry_date, p.active,
		COALESCE(array_agg(pc.category_id) FILTER (WHERE pc.category_id IS NOT NULL), '{}')
		FROM products p
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		WHERE p.shop_id = $1 AND p.active
		GROUP BY p.id
		ORDER BY p.id`

	getProductsByIDsSQL = `SELECT p.id, p.shop_id, p.name, p.price, p.inventory, p.tax_rate, p.expiry_date, p.active,
		COALESCE(array_agg(pc.category_id) FILTER (WHERE pc.category_id IS NOT NULL), '{}')
		FROM products p
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		WHERE p.shop_id = $1 AND p.id = ANY($2)
		GROUP BY p.id`

	getVariantsSQL = `SELECT id, product_id, name, price, inventory, sku, barcode, options
		FROM product_variants WHERE product_id = ANY($1) ORDER BY id`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository using the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all active products in the shop with variants and category
// memberships attached.
func (r *CatalogRepository) List(ctx context.Context, shopID string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, shopID)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product scoped to the shop.
func (r *CatalogRepository) GetByID(ctx context.Context, shopID, id string) (*catalog.Product, error) {
	products, err := r.GetByIDs(ctx, shopID, []string{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, catalog.ErrNotFound
	}
	return &products[0], nil
}

// GetByIDs returns the shop's products matching any of the given IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, shopID string, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, shopID, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// attachVariants loads variants for the given products in one batch query.
func (r *CatalogRepository) attachVariants(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		byID[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx, getVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("getting variants: %w", err)
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return fmt.Errorf("getting variants: %w", err)
	}

	for _, v := range variants {
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.ShopID, &p.Name, &p.Price, &p.Inventory, &p.TaxRate,
		&p.ExpiryDate, &p.Active, &p.CategoryIDs,
	)
	if err != nil {
		return p, errors.Wrap(err, "scan product")
	}
	return p, nil
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.Name, &v.Price, &v.Inventory,
		&v.SKU, &v.Barcode, &v.Options,
	)
	if err != nil {
		return v, errors.Wrap(err, "scan variant")
	}
	return v, nil
}
