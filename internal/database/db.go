package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/mkobay/ddp-pricer/internal/pricing"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the SQLite reference-data store. It implements the pricing
// package's TariffSource and TierSource interfaces; all pricing-path
// queries are read-only.
type DB struct {
	*sql.DB
}

// RefreshHistory records one reference-data refresh run.
type RefreshHistory struct {
	ID          int64      `json:"id"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	Items       int        `json:"itemsRefreshed"`
	ErrorMsg    string     `json:"errorMessage,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Open opens or creates the database
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db}, nil
}

// TariffRate looks up a tariff row by exact code.
func (db *DB) TariffRate(ctx context.Context, code string) (pricing.TariffRate, bool, error) {
	var (
		tr      pricing.TariffRate
		rateStr string
	)
	err := db.QueryRowContext(ctx, `
		SELECT code, base_duty_rate, description
		FROM tariff_rates
		WHERE code = ?
	`, code).Scan(&tr.Code, &rateStr, &tr.Description)
	if err == sql.ErrNoRows {
		return pricing.TariffRate{}, false, nil
	}
	if err != nil {
		return pricing.TariffRate{}, false, err
	}

	tr.BaseDutyRate, err = decimal.NewFromString(rateStr)
	if err != nil {
		return pricing.TariffRate{}, false, fmt.Errorf("bad duty rate %q for code %s: %w", rateStr, code, err)
	}
	return tr, true, nil
}

// CountryAdjustment looks up the additive tariff for an origin country.
func (db *DB) CountryAdjustment(ctx context.Context, country string) (pricing.CountryAdjustment, bool, error) {
	var (
		adj     pricing.CountryAdjustment
		rateStr string
		active  int
	)
	err := db.QueryRowContext(ctx, `
		SELECT country, additional_rate, kind, active
		FROM country_adjustments
		WHERE country = ?
	`, country).Scan(&adj.Country, &rateStr, &adj.Kind, &active)
	if err == sql.ErrNoRows {
		return pricing.CountryAdjustment{}, false, nil
	}
	if err != nil {
		return pricing.CountryAdjustment{}, false, err
	}

	adj.Active = active != 0
	adj.AdditionalRate, err = decimal.NewFromString(rateStr)
	if err != nil {
		return pricing.CountryAdjustment{}, false, fmt.Errorf("bad adjustment rate %q for %s: %w", rateStr, country, err)
	}
	return adj, true, nil
}

// CheapestTier returns the lowest-cost tier covering the weight whose
// price band is within the hint, falling back to the overall cheapest
// tier for the weight when no band qualifies.
func (db *DB) CheapestTier(ctx context.Context, weight, priceHint decimal.Decimal) (pricing.ShippingTier, error) {
	w := weight.InexactFloat64()

	tier, found, err := scanTier(db.QueryRowContext(ctx, `
		SELECT name, weight_min_kg, weight_max_kg, price_band_usd, base_shipping_usd, total_shipping_usd
		FROM shipping_tiers
		WHERE weight_min_kg <= ? AND weight_max_kg > ?
		  AND CAST(price_band_usd AS REAL) <= ?
		ORDER BY CAST(total_shipping_usd AS REAL) ASC
		LIMIT 1
	`, w, w, priceHint.InexactFloat64()))
	if err != nil {
		return pricing.ShippingTier{}, err
	}
	if found {
		return tier, nil
	}

	tier, found, err = scanTier(db.QueryRowContext(ctx, `
		SELECT name, weight_min_kg, weight_max_kg, price_band_usd, base_shipping_usd, total_shipping_usd
		FROM shipping_tiers
		WHERE weight_min_kg <= ? AND weight_max_kg > ?
		ORDER BY CAST(total_shipping_usd AS REAL) ASC
		LIMIT 1
	`, w, w))
	if err != nil {
		return pricing.ShippingTier{}, err
	}
	if !found {
		return pricing.ShippingTier{}, fmt.Errorf("weight %skg: %w", weight.String(), pricing.ErrNoTierFound)
	}
	return tier, nil
}

// TiersAbove returns up to limit tiers for the weight whose total
// shipping charge is at least minTotal, cheapest first.
func (db *DB) TiersAbove(ctx context.Context, weight, minTotal decimal.Decimal, limit int) ([]pricing.ShippingTier, error) {
	w := weight.InexactFloat64()

	rows, err := db.QueryContext(ctx, `
		SELECT name, weight_min_kg, weight_max_kg, price_band_usd, base_shipping_usd, total_shipping_usd
		FROM shipping_tiers
		WHERE weight_min_kg <= ? AND weight_max_kg > ?
		  AND CAST(total_shipping_usd AS REAL) >= ?
		ORDER BY CAST(total_shipping_usd AS REAL) ASC
		LIMIT ?
	`, w, w, minTotal.InexactFloat64(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []pricing.ShippingTier
	for rows.Next() {
		tier, err := scanTierRow(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

// ShippingCap returns the category's maximum allowed shipping charge.
func (db *DB) ShippingCap(ctx context.Context, category string) (decimal.Decimal, bool, error) {
	var capStr string
	err := db.QueryRowContext(ctx, `
		SELECT max_shipping_usd FROM category_shipping_caps WHERE category = ?
	`, category).Scan(&capStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	maxShipping, err := decimal.NewFromString(capStr)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("bad shipping cap %q for %s: %w", capStr, category, err)
	}
	return maxShipping, true, nil
}

// StoreFeeDiscount returns the selling-fee discount for a store tier,
// zero when the tier is unknown.
func (db *DB) StoreFeeDiscount(ctx context.Context, tier string) (decimal.Decimal, error) {
	var discStr string
	err := db.QueryRowContext(ctx, `
		SELECT selling_fee_discount FROM store_fee_discounts WHERE store_tier = ?
	`, tier).Scan(&discStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(discStr)
}

// UpsertShippingCap stores or updates a category shipping cap.
func (db *DB) UpsertShippingCap(ctx context.Context, category string, maxShipping decimal.Decimal) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO category_shipping_caps (category, max_shipping_usd, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category) DO UPDATE SET
			max_shipping_usd = excluded.max_shipping_usd,
			updated_at = CURRENT_TIMESTAMP
	`, category, maxShipping.String())
	return err
}

// UpsertStoreFeeDiscount stores or updates a store-tier fee discount.
func (db *DB) UpsertStoreFeeDiscount(ctx context.Context, tier string, discount decimal.Decimal) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO store_fee_discounts (store_tier, selling_fee_discount, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(store_tier) DO UPDATE SET
			selling_fee_discount = excluded.selling_fee_discount,
			updated_at = CURRENT_TIMESTAMP
	`, tier, discount.String())
	return err
}

// CreateRefreshHistory inserts a refresh record and sets its ID.
func (db *DB) CreateRefreshHistory(h *RefreshHistory) error {
	result, err := db.Exec(`
		INSERT INTO refresh_history (source, status, items_refreshed, error_message, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, h.Source, h.Status, h.Items, h.ErrorMsg, h.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create refresh history: %w", err)
	}
	h.ID, err = result.LastInsertId()
	return err
}

// CompleteRefreshHistory marks a refresh record finished.
func (db *DB) CompleteRefreshHistory(id int64, status string, items int, errMsg string) error {
	_, err := db.Exec(`
		UPDATE refresh_history
		SET status = ?, items_refreshed = ?, error_message = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, items, errMsg, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTier(row *sql.Row) (pricing.ShippingTier, bool, error) {
	tier, err := scanTierRow(row)
	if err == sql.ErrNoRows {
		return pricing.ShippingTier{}, false, nil
	}
	if err != nil {
		return pricing.ShippingTier{}, false, err
	}
	return tier, true, nil
}

func scanTierRow(row rowScanner) (pricing.ShippingTier, error) {
	var (
		tier                 pricing.ShippingTier
		wMin, wMax           float64
		band, base, totalStr string
	)
	if err := row.Scan(&tier.Name, &wMin, &wMax, &band, &base, &totalStr); err != nil {
		return pricing.ShippingTier{}, err
	}

	tier.WeightMin = decimal.NewFromFloat(wMin)
	tier.WeightMax = decimal.NewFromFloat(wMax)

	var err error
	if tier.PriceBand, err = decimal.NewFromString(band); err != nil {
		return pricing.ShippingTier{}, fmt.Errorf("bad price band %q: %w", band, err)
	}
	if tier.BaseCost, err = decimal.NewFromString(base); err != nil {
		return pricing.ShippingTier{}, fmt.Errorf("bad base shipping %q: %w", base, err)
	}
	if tier.TotalCost, err = decimal.NewFromString(totalStr); err != nil {
		return pricing.ShippingTier{}, fmt.Errorf("bad total shipping %q: %w", totalStr, err)
	}
	return tier, nil
}
