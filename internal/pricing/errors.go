package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrClassificationNotFound means no duty rate matched the
	// classification code at any prefix depth.
	ErrClassificationNotFound = errors.New("classification code not found")

	// ErrNoTierFound means no shipping tier covers the requested weight.
	ErrNoTierFound = errors.New("no shipping tier for weight")
)

// MarginUnachievableError reports that the target margin cannot be
// reached given the duty and variable-fee rates. It carries the rates
// and the best achievable margin so callers can explain the failure.
type MarginUnachievableError struct {
	TargetMargin        decimal.Decimal
	MaxAchievableMargin decimal.Decimal
	EffectiveDutyRate   decimal.Decimal
	VariableRateSum     decimal.Decimal
}

func (e *MarginUnachievableError) Error() string {
	return fmt.Sprintf(
		"target margin %s%% unachievable: duty %s%% + variable fees %s%% leave at most %s%%",
		e.TargetMargin.Mul(hundred).StringFixed(1),
		e.EffectiveDutyRate.Mul(hundred).StringFixed(2),
		e.VariableRateSum.Mul(hundred).StringFixed(2),
		e.MaxAchievableMargin.Mul(hundred).StringFixed(2),
	)
}
