package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// ShippingTier is one row of the carrier rate table: a weight band and
// price band mapped to a pre-provisioned shipping charge. TotalCost is
// never less than BaseCost; the difference is duty/handling headroom
// baked into the buyer-facing charge.
type ShippingTier struct {
	Name      string
	WeightMin decimal.Decimal // kg, inclusive
	WeightMax decimal.Decimal // kg, exclusive
	PriceBand decimal.Decimal // product price this tier is provisioned for
	BaseCost  decimal.Decimal // actual carrier cost
	TotalCost decimal.Decimal // buyer-facing charge, BaseCost + headroom
}

// Headroom is the duty/handling amount pre-provisioned in the tier.
func (t ShippingTier) Headroom() decimal.Decimal {
	return t.TotalCost.Sub(t.BaseCost)
}

// TierSource supplies shipping tier reference data.
type TierSource interface {
	// CheapestTier returns the lowest-TotalCost tier for the weight
	// whose price band does not exceed priceHint, or the overall
	// cheapest tier for the weight when no band qualifies. Returns
	// ErrNoTierFound if the weight is covered by no tier at all.
	CheapestTier(ctx context.Context, weight, priceHint decimal.Decimal) (ShippingTier, error)

	// TiersAbove returns up to limit tiers for the weight with
	// TotalCost >= minTotal, ordered by TotalCost ascending. An empty
	// slice is not an error.
	TiersAbove(ctx context.Context, weight, minTotal decimal.Decimal, limit int) ([]ShippingTier, error)

	// ShippingCap returns the category's maximum allowed buyer-facing
	// shipping charge, with ok=false when the category has no cap.
	ShippingCap(ctx context.Context, category string) (decimal.Decimal, bool, error)
}
