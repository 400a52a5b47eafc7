// Command seed-db loads the development dataset: bookable services and
// products from a JSON catalog file, a starter set of coupons, and an API
// key for each role.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/camelia-studio/camelia/internal/repository"
)

type catalogJSON struct {
	Services []serviceJSON `json:"services"`
	Products []productJSON `json:"products"`
}

type serviceJSON struct {
	ID                string          `json:"id"`
	ProviderID        string          `json:"providerId"`
	Name              string          `json:"name"`
	DurationMinutes   int             `json:"durationMinutes"`
	Price             decimal.Decimal `json:"price"`
	MaxBookingsPerDay *int            `json:"maxBookingsPerDay"`
	AdvanceDays       *int            `json:"advanceBookingDays"`
}

type productJSON struct {
	ID                string          `json:"id"`
	SellerID          string          `json:"sellerId"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Stock             int             `json:"stock"`
	LowStockThreshold int             `json:"lowStockThreshold"`
}

type couponSeed struct {
	code         string
	discountType string
	value        string
	minPurchase  string
	maxDiscount  string
	usageLimit   int
	userLimit    int
}

var couponSeeds = []couponSeed{
	{code: "WELCOME10", discountType: "PERCENTAGE", value: "10", maxDiscount: "1000", userLimit: 1},
	{code: "SUMMER20", discountType: "PERCENTAGE", value: "20", minPurchase: "5000", maxDiscount: "3000"},
	{code: "TENOFF", discountType: "FIXED", value: "10", minPurchase: "50"},
	{code: "VIP50", discountType: "PERCENTAGE", value: "50", usageLimit: 100},
	{code: "FLASH15", discountType: "FIXED", value: "15", usageLimit: 3},
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to services/products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or CAMELIA_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CAMELIA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CAMELIA_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CAMELIA_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CAMELIA_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
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

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const upsertServiceSQL = `
INSERT INTO services (id, provider_id, name, duration_minutes, price, max_bookings_per_day, advance_booking_days)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    provider_id = EXCLUDED.provider_id,
    name = EXCLUDED.name,
    duration_minutes = EXCLUDED.duration_minutes,
    price = EXCLUDED.price,
    max_bookings_per_day = EXCLUDED.max_bookings_per_day,
    advance_booking_days = EXCLUDED.advance_booking_days,
    updated_at = now()`

const upsertProductSQL = `
INSERT INTO products (id, seller_id, name, price, stock, low_stock_threshold)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    seller_id = EXCLUDED.seller_id,
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock,
    low_stock_threshold = EXCLUDED.low_stock_threshold,
    updated_at = now()`

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("upserting services", slog.Int("count", len(catalog.Services)))

	for _, s := range catalog.Services {
		if _, err := pool.Exec(ctx, upsertServiceSQL,
			s.ID, s.ProviderID, s.Name, s.DurationMinutes, s.Price, s.MaxBookingsPerDay, s.AdvanceDays,
		); err != nil {
			return errors.Wrapf(err, "upsert service %s", s.ID)
		}
		slog.Info("upserted service", slog.String("id", s.ID), slog.String("name", s.Name))
	}

	slog.Info("upserting products", slog.Int("count", len(catalog.Products)))

	for _, p := range catalog.Products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.SellerID, p.Name, p.Price, p.Stock, p.LowStockThreshold,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const upsertCouponSQL = `
INSERT INTO coupons (id, code, discount_type, discount_value, min_purchase, max_discount, usage_limit, user_limit, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
ON CONFLICT (UPPER(code)) DO UPDATE SET
    discount_type = EXCLUDED.discount_type,
    discount_value = EXCLUDED.discount_value,
    min_purchase = EXCLUDED.min_purchase,
    max_discount = EXCLUDED.max_discount,
    usage_limit = EXCLUDED.usage_limit,
    user_limit = EXCLUDED.user_limit,
    active = TRUE`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding starter coupons")

	for _, c := range couponSeeds {
		value, err := decimal.NewFromString(c.value)
		if err != nil {
			return errors.Wrapf(err, "parse value for coupon %s", c.code)
		}
		minPurchase := decimal.Zero
		if c.minPurchase != "" {
			if minPurchase, err = decimal.NewFromString(c.minPurchase); err != nil {
				return errors.Wrapf(err, "parse min purchase for coupon %s", c.code)
			}
		}
		maxDiscount := decimal.Zero
		if c.maxDiscount != "" {
			if maxDiscount, err = decimal.NewFromString(c.maxDiscount); err != nil {
				return errors.Wrapf(err, "parse max discount for coupon %s", c.code)
			}
		}

		if _, err := pool.Exec(ctx, upsertCouponSQL,
			uuid.New().String(), c.code, c.discountType, value, minPurchase, maxDiscount, c.usageLimit, c.userLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name, user_id, role, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (id) DO UPDATE SET
    key_hash = EXCLUDED.key_hash,
    name = EXCLUDED.name,
    user_id = EXCLUDED.user_id,
    role = EXCLUDED.role,
    active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default-admin", keyHash, "Default admin key", "seed-admin", "admin",
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default-admin"))
	return nil
}
