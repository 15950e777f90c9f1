package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Viability is the answer to "can this margin exist at all", independent
// of any specific price or tier.
type Viability struct {
	Feasible            bool
	MaxAchievableMargin decimal.Decimal
	EffectiveDutyRate   decimal.Decimal
	VariableRateSum     decimal.Decimal
	Reason              string
}

// CheckViability determines whether the target margin is mathematically
// reachable: feasible iff 1 - D - V - M > guard, where D is the
// effective duty rate plus the merchandise-processing rate and V the
// variable-fee sum. When infeasible, MaxAchievableMargin and Reason
// explain the best the caller could do.
func CheckViability(effectiveDuty, mpfRate, variableRateSum, targetMargin, guard decimal.Decimal) Viability {
	d := effectiveDuty.Add(mpfRate)
	headroom := one.Sub(d).Sub(variableRateSum).Sub(targetMargin)
	maxMargin := one.Sub(d).Sub(variableRateSum).Sub(guard)

	v := Viability{
		Feasible:            headroom.GreaterThan(guard),
		MaxAchievableMargin: maxMargin,
		EffectiveDutyRate:   effectiveDuty,
		VariableRateSum:     variableRateSum,
	}
	if !v.Feasible {
		v.Reason = fmt.Sprintf(
			"duty %s%% and variable fees %s%% leave a maximum margin of %s%%; %s%% requested",
			effectiveDuty.Mul(hundred).StringFixed(2),
			variableRateSum.Mul(hundred).StringFixed(2),
			maxMargin.Mul(hundred).StringFixed(2),
			targetMargin.Mul(hundred).StringFixed(1),
		)
	}
	return v
}
