package database

import (
	"context"
	"fmt"
)

// seedTier mirrors one row of the carrier's published US DDP rate card.
type seedTier struct {
	name          string
	weightMin     float64
	weightMax     float64
	priceBand     string
	baseShipping  string
	totalShipping string
}

// Default US DDP rate card: per weight band, several price bands with
// progressively larger duty headroom baked into the total charge.
var defaultTiers = []seedTier{
	{"0.5-1.0kg", 0.5, 1.0, "50", "14.50", "22.00"},
	{"0.5-1.0kg", 0.5, 1.0, "100", "14.50", "32.00"},
	{"0.5-1.0kg", 0.5, 1.0, "200", "14.50", "55.00"},
	{"0.5-1.0kg", 0.5, 1.0, "400", "14.50", "98.00"},
	{"1.0-1.5kg", 1.0, 1.5, "50", "18.80", "27.00"},
	{"1.0-1.5kg", 1.0, 1.5, "100", "18.80", "37.50"},
	{"1.0-1.5kg", 1.0, 1.5, "200", "18.80", "60.00"},
	{"1.0-1.5kg", 1.0, 1.5, "400", "18.80", "103.00"},
	{"1.5-2.0kg", 1.5, 2.0, "50", "23.20", "31.50"},
	{"1.5-2.0kg", 1.5, 2.0, "100", "23.20", "42.00"},
	{"1.5-2.0kg", 1.5, 2.0, "200", "23.20", "64.50"},
	{"1.5-2.0kg", 1.5, 2.0, "400", "23.20", "107.50"},
	{"2.0-3.0kg", 2.0, 3.0, "100", "29.90", "49.00"},
	{"2.0-3.0kg", 2.0, 3.0, "200", "29.90", "71.00"},
	{"2.0-3.0kg", 2.0, 3.0, "400", "29.90", "114.00"},
	{"3.0-5.0kg", 3.0, 5.0, "100", "41.60", "60.50"},
	{"3.0-5.0kg", 3.0, 5.0, "200", "41.60", "83.00"},
	{"3.0-5.0kg", 3.0, 5.0, "400", "41.60", "126.00"},
}

var defaultAdjustments = []struct {
	country string
	rate    string
	kind    string
}{
	{"CN", "0.25", "section301"},
	{"VN", "0.20", "reciprocal2025"},
	{"JP", "0.15", "reciprocal2025"},
}

// SeedDefaults loads the bundled rate card, country surcharges and
// store discounts into an empty database. Existing tier rows are left
// alone so a refreshed database is never clobbered.
func (db *DB) SeedDefaults(ctx context.Context) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipping_tiers`).Scan(&count); err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range defaultTiers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shipping_tiers (name, weight_min_kg, weight_max_kg, price_band_usd, base_shipping_usd, total_shipping_usd)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.name, t.weightMin, t.weightMax, t.priceBand, t.baseShipping, t.totalShipping); err != nil {
			return fmt.Errorf("seed tier %s/%s: %w", t.name, t.priceBand, err)
		}
	}

	for _, a := range defaultAdjustments {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO country_adjustments (country, additional_rate, kind, active)
			VALUES (?, ?, ?, 1)
		`, a.country, a.rate, a.kind); err != nil {
			return fmt.Errorf("seed adjustment %s: %w", a.country, err)
		}
	}

	for tier, discount := range map[string]string{
		"none": "0", "basic": "0.04", "premium": "0.06", "anchor": "0.08",
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO store_fee_discounts (store_tier, selling_fee_discount)
			VALUES (?, ?)
		`, tier, discount); err != nil {
			return fmt.Errorf("seed store tier %s: %w", tier, err)
		}
	}

	return tx.Commit()
}
