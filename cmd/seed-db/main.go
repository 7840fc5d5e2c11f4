// Command seed-db provisions a demo shop: catalog, plan limits, sample
// discounts and codes, and an API key for local development.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopkit/internal/domain/discount"
	"github.com/xenking/shopkit/internal/domain/promo"
	"github.com/xenking/shopkit/internal/repository"
)

const (
	shopID      = "demo-shop"
	adminUserID = "demo-admin"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or SHOPKIT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOPKIT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOPKIT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOPKIT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOPKIT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedShop(ctx, pool); err != nil {
		return errors.Wrap(err, "seed shop")
	}
	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedLimits(ctx, pool); err != nil {
		return errors.Wrap(err, "seed limits")
	}
	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedShop(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo shop", slog.String("shop_id", shopID))

	_, err := pool.Exec(ctx, `INSERT INTO shops (id, name, plan_type)
		VALUES ($1, 'Demo Shop', 'ADVANCED')
		ON CONFLICT (id) DO NOTHING`, shopID)
	if err != nil {
		return errors.Wrap(err, "upsert shop")
	}

	_, err = pool.Exec(ctx, `INSERT INTO users (id, shop_id, email, role)
		VALUES ($1, $2, 'admin@demo.shop', 'ADMIN')
		ON CONFLICT (id) DO NOTHING`, adminUserID, shopID)
	if err != nil {
		return errors.Wrap(err, "upsert admin user")
	}
	return nil
}

type seedProduct struct {
	id       string
	name     string
	price    string
	stock    int
	taxRate  string
	category string
	variants []seedVariant
}

type seedVariant struct {
	id    string
	name  string
	price string
	stock int
}

var catalogRows = []seedProduct{
	{
		id: "prod-tshirt", name: "Basic T-Shirt", price: "19.99", stock: 0, taxRate: "10", category: "cat-clothing",
		variants: []seedVariant{
			{id: "var-tshirt-s", name: "Small", price: "19.99", stock: 40},
			{id: "var-tshirt-m", name: "Medium", price: "19.99", stock: 60},
			{id: "var-tshirt-l", name: "Large", price: "21.99", stock: 30},
		},
	},
	{id: "prod-mug", name: "Coffee Mug", price: "9.50", stock: 200, taxRate: "10", category: "cat-home"},
	{id: "prod-beans", name: "Coffee Beans 1kg", price: "24.00", stock: 80, taxRate: "0", category: "cat-food"},
	{id: "prod-poster", name: "Poster", price: "12.95", stock: 150, taxRate: "10", category: "cat-home"},
}

var categoryNames = map[string]string{
	"cat-clothing": "Clothing",
	"cat-home":     "Home",
	"cat-food":     "Food",
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding catalog", slog.Int("products", len(catalogRows)))

	for id, name := range categoryNames {
		_, err := pool.Exec(ctx, `INSERT INTO categories (id, shop_id, name)
			VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`, id, shopID, name)
		if err != nil {
			return errors.Wrapf(err, "upsert category %s", id)
		}
	}

	for _, p := range catalogRows {
		_, err := pool.Exec(ctx, `INSERT INTO products (id, shop_id, name, price, inventory, tax_rate)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET price = EXCLUDED.price, inventory = EXCLUDED.inventory`,
			p.id, shopID, p.name, p.price, p.stock, p.taxRate)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}

		_, err = pool.Exec(ctx, `INSERT INTO product_categories (product_id, category_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, p.id, p.category)
		if err != nil {
			return errors.Wrapf(err, "link product %s", p.id)
		}

		for _, v := range p.variants {
			_, err = pool.Exec(ctx, `INSERT INTO product_variants (id, product_id, name, price, inventory)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET price = EXCLUDED.price, inventory = EXCLUDED.inventory`,
				v.id, p.id, v.name, v.price, v.stock)
			if err != nil {
				return errors.Wrapf(err, "upsert variant %s", v.id)
			}
		}

		slog.Info("upserted product", slog.String("id", p.id), slog.String("name", p.name))
	}
	return nil
}

// seedLimits installs the default plan quotas. -1 means unlimited.
func seedLimits(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding plan limits")

	limits := map[string]int{
		"STANDARD_DISCOUNT_LIMIT":      3,
		"STANDARD_DISCOUNT_CODE_LIMIT": 5,
		"STANDARD_PRODUCT_LIMIT":       100,
		"ADVANCED_DISCOUNT_LIMIT":      20,
		"ADVANCED_DISCOUNT_CODE_LIMIT": 50,
		"ADVANCED_PRODUCT_LIMIT":       1000,
		"PREMIUM_DISCOUNT_LIMIT":       -1,
		"PREMIUM_DISCOUNT_CODE_LIMIT":  -1,
		"PREMIUM_PRODUCT_LIMIT":        -1,
	}

	for code, value := range limits {
		_, err := pool.Exec(ctx, `INSERT INTO system_limits (code_name, value)
			VALUES ($1, $2) ON CONFLICT (code_name) DO UPDATE SET value = EXCLUDED.value`,
			code, value)
		if err != nil {
			return errors.Wrapf(err, "upsert limit %s", code)
		}
	}
	return nil
}

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding sample discount and code")

	discounts := repository.NewDiscountRepository(pool)
	codes := repository.NewCodeRepository(pool)

	now := time.Now()
	err := discounts.Create(ctx, &discount.Discount{
		ID:               "disc-clothing-10",
		ShopID:           shopID,
		Name:             "Clothing 10% off",
		Percentage:       decimal.NewFromInt(10),
		Enabled:          true,
		StartDate:        now,
		EndDate:          now.AddDate(0, 1, 0),
		AvailableOnline:  true,
		AvailableInStore: true,
		Target:           discount.ForCategory("cat-clothing"),
	})
	if err != nil {
		slog.Info("sample discount already present", slog.String("error", err.Error()))
	}

	err = codes.Create(ctx, &promo.Code{
		ID:               "code-save10",
		ShopID:           shopID,
		Code:             "SAVE10",
		Percentage:       decimal.NewFromInt(10),
		Active:           true,
		StartDate:        now,
		EndDate:          now.AddDate(1, 0, 0),
		UsageLimit:       100,
		AvailableOnline:  true,
		AvailableInStore: true,
		Target:           discount.Storewide(),
	})
	if err != nil {
		slog.Info("sample code already present", slog.String("error", err.Error()))
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `INSERT INTO api_keys (id, key_hash, name, shop_id, user_id, role, active)
		VALUES ('default', $1, 'Default admin key', $2, $3, 'ADMIN', TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash`,
		keyHash, shopID, adminUserID)
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"))
	return nil
}
