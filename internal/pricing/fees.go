package pricing

import "github.com/shopspring/decimal"

// StoreTier identifies a marketplace store subscription level. Higher
// tiers get a discount on the selling-fee rate.
type StoreTier string

const (
	StoreNone    StoreTier = "none"
	StoreBasic   StoreTier = "basic"
	StorePremium StoreTier = "premium"
	StoreAnchor  StoreTier = "anchor"
)

// StoreDiscounts maps store tiers to the selling-fee discount they earn.
var StoreDiscounts = map[StoreTier]decimal.Decimal{
	StoreNone:    decimal.Zero,
	StoreBasic:   decimal.NewFromFloat(0.04),
	StorePremium: decimal.NewFromFloat(0.06),
	StoreAnchor:  decimal.NewFromFloat(0.08),
}

// FeeModel is the schedule of marketplace and payment fees applied to a
// single pricing request. Variable rates are fractions of total revenue;
// fixed fees are flat amounts in the settlement currency.
type FeeModel struct {
	SellingFeeRate       decimal.Decimal
	PaymentFeeRate       decimal.Decimal
	FXLossRate           decimal.Decimal
	InternationalFeeRate decimal.Decimal
	StoreDiscount        decimal.Decimal // subtracted from SellingFeeRate, floored at zero

	InsertionFee              decimal.Decimal
	CustomsServiceFee         decimal.Decimal
	MerchandiseProcessingRate decimal.Decimal
}

// DefaultFeeModel returns the standard fee schedule for the given store
// tier. Callers override individual rates per seller account as needed.
func DefaultFeeModel(tier StoreTier) FeeModel {
	discount, ok := StoreDiscounts[tier]
	if !ok {
		discount = decimal.Zero
	}
	return FeeModel{
		SellingFeeRate:            decimal.NewFromFloat(0.1315),
		PaymentFeeRate:            decimal.NewFromFloat(0.02),
		FXLossRate:                decimal.NewFromFloat(0.03),
		InternationalFeeRate:      decimal.NewFromFloat(0.015),
		StoreDiscount:             discount,
		InsertionFee:              decimal.NewFromFloat(0.35),
		CustomsServiceFee:         decimal.NewFromInt(15),
		MerchandiseProcessingRate: decimal.NewFromFloat(0.003464),
	}
}

// EffectiveSellingFeeRate returns the selling-fee rate after the store
// discount, never below zero.
func (f FeeModel) EffectiveSellingFeeRate() decimal.Decimal {
	r := f.SellingFeeRate.Sub(f.StoreDiscount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// VariableRateSum is the total fraction of revenue consumed by
// variable-rate fees.
func (f FeeModel) VariableRateSum() decimal.Decimal {
	return f.EffectiveSellingFeeRate().
		Add(f.PaymentFeeRate).
		Add(f.FXLossRate).
		Add(f.InternationalFeeRate)
}
