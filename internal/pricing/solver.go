package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// SolverConfig holds the tunable constants of the price solver. The
// zero value is not usable; start from DefaultSolverConfig.
type SolverConfig struct {
	// HighTariffThreshold selects the closed-form strategy when the
	// effective duty rate exceeds it.
	HighTariffThreshold decimal.Decimal
	// FeasibilityGuard is the minimum margin-equation denominator; at
	// or below it the target margin is reported unachievable.
	FeasibilityGuard decimal.Decimal
	// PriceIncrement is the step the final price is rounded to.
	PriceIncrement decimal.Decimal
	// IterationCap bounds the fixed-point iteration.
	IterationCap int
	// ConvergenceTolerance is the absolute price delta below which the
	// iteration stops early.
	ConvergenceTolerance decimal.Decimal
	// InitialEstimateMultiplier seeds the iteration (and the first-pass
	// tier lookup) at cost times this factor.
	InitialEstimateMultiplier decimal.Decimal
	// SalesTaxAllowance is the destination sales/use tax fraction
	// folded into the effective duty rate.
	SalesTaxAllowance decimal.Decimal
	// MinBillableWeight is the carrier floor in kg; lighter requests
	// are priced at this weight.
	MinBillableWeight decimal.Decimal
}

// DefaultSolverConfig returns the standard solver constants.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		HighTariffThreshold:       decimal.NewFromFloat(0.50),
		FeasibilityGuard:          decimal.NewFromFloat(0.01),
		PriceIncrement:            decimal.NewFromInt(5),
		IterationCap:              5,
		ConvergenceTolerance:      decimal.NewFromFloat(0.5),
		InitialEstimateMultiplier: two,
		SalesTaxAllowance:         decimal.NewFromFloat(0.08),
		MinBillableWeight:         decimal.NewFromFloat(0.5),
	}
}

// SolveInput carries everything the price equation needs once a
// shipping tier has been fixed. All amounts are settlement currency.
type SolveInput struct {
	Cost          decimal.Decimal // sourcing cost
	BaseShipping  decimal.Decimal // carrier cost of the chosen tier
	TotalShipping decimal.Decimal // buyer-facing charge of the chosen tier
	DutyRate      decimal.Decimal // effective duty incl. sales-tax allowance
	MPFRate       decimal.Decimal
	ServiceFee    decimal.Decimal // fixed customs brokerage fee
	InsertionFee  decimal.Decimal
	VariableRate  decimal.Decimal // sum of revenue-fraction fees
	TargetMargin  decimal.Decimal
}

// SolveOutput is the solved product price. RawPrice is the pre-rounding
// value; ProductPrice is rounded to the configured increment. Converged
// is false when the iterative strategy hit its cap without the price
// settling - the result is still usable but not exact.
type SolveOutput struct {
	ProductPrice decimal.Decimal
	RawPrice     decimal.Decimal
	Iterations   int
	Converged    bool
}

// Solver computes a product price meeting the target margin for a fixed
// shipping tier.
type Solver interface {
	Solve(in SolveInput) (SolveOutput, error)
}

// NewSolver selects the solving strategy for the given effective duty
// rate: algebraic closed form above the high-tariff threshold, bounded
// fixed-point iteration otherwise. Both honor the same rounding policy:
// round once, after the final price.
func NewSolver(cfg SolverConfig, effectiveDutyRate decimal.Decimal) Solver {
	if effectiveDutyRate.GreaterThan(cfg.HighTariffThreshold) {
		return closedFormSolver{cfg: cfg}
	}
	return iterativeSolver{cfg: cfg}
}

// closedFormSolver solves the margin equation algebraically. With the
// shipping charge S fixed, duty, MPF and variable fees are all linear
// in price P, so
//
//	M = (P + S - cost - P*d - P*mpf - (P+S)*V - fixed) / (P + S)
//
// rearranges to
//
//	P = (fixedCost + serviceFee - S*(1 - M - V)) / (1 - D - V - M)
//
// with D = duty + mpf. This is the exact fixed point of the iterative
// strategy's map; it is used directly for high-duty goods where that
// map contracts too slowly to trust within the iteration cap.
type closedFormSolver struct {
	cfg SolverConfig
}

func (s closedFormSolver) Solve(in SolveInput) (SolveOutput, error) {
	d := in.DutyRate.Add(in.MPFRate)
	denom := one.Sub(d).Sub(in.VariableRate).Sub(in.TargetMargin)

	if denom.Cmp(s.cfg.FeasibilityGuard) <= 0 {
		return SolveOutput{}, &MarginUnachievableError{
			TargetMargin:        in.TargetMargin,
			MaxAchievableMargin: one.Sub(d).Sub(in.VariableRate).Sub(s.cfg.FeasibilityGuard),
			EffectiveDutyRate:   in.DutyRate,
			VariableRateSum:     in.VariableRate,
		}
	}

	fixedCost := in.Cost.Add(in.BaseShipping).Add(in.InsertionFee)
	shippingOffset := in.TotalShipping.Mul(one.Sub(in.TargetMargin).Sub(in.VariableRate))
	numer := fixedCost.Add(in.ServiceFee).Sub(shippingOffset)
	raw := numer.Div(denom)

	if !raw.IsPositive() {
		return SolveOutput{}, s.unachievable(in, d)
	}

	return SolveOutput{
		ProductPrice: roundToIncrement(raw, s.cfg.PriceIncrement),
		RawPrice:     raw,
		Iterations:   1,
		Converged:    true,
	}, nil
}

func (s closedFormSolver) unachievable(in SolveInput, d decimal.Decimal) error {
	return &MarginUnachievableError{
		TargetMargin:        in.TargetMargin,
		MaxAchievableMargin: one.Sub(d).Sub(in.VariableRate).Sub(s.cfg.FeasibilityGuard),
		EffectiveDutyRate:   in.DutyRate,
		VariableRateSum:     in.VariableRate,
	}
}

// iterativeSolver runs the fixed-point map
//
//	P -> fixedCost(P) / (1 - M - V) - S
//
// where fixedCost(P) = cost + baseShipping + P*d + P*mpf + serviceFee +
// insertionFee. It starts at cost times the configured multiplier and
// stops when successive prices differ by less than the tolerance or the
// iteration cap is reached. Convergence is not guaranteed for all rate
// combinations; callers must check Converged.
type iterativeSolver struct {
	cfg SolverConfig
}

func (s iterativeSolver) Solve(in SolveInput) (SolveOutput, error) {
	denom := one.Sub(in.TargetMargin).Sub(in.VariableRate)
	if denom.Cmp(s.cfg.FeasibilityGuard) <= 0 {
		return SolveOutput{}, s.unachievable(in)
	}

	price := in.Cost.Mul(s.cfg.InitialEstimateMultiplier)
	out := SolveOutput{}

	for i := 0; i < s.cfg.IterationCap; i++ {
		duty := price.Mul(in.DutyRate)
		mpf := price.Mul(in.MPFRate)
		fixedCost := in.Cost.Add(in.BaseShipping).Add(duty).Add(mpf).
			Add(in.ServiceFee).Add(in.InsertionFee)
		requiredRevenue := fixedCost.Div(denom)
		next := requiredRevenue.Sub(in.TotalShipping)

		out.Iterations = i + 1
		if next.Sub(price).Abs().LessThan(s.cfg.ConvergenceTolerance) {
			price = next
			out.Converged = true
			break
		}
		price = next
	}

	if !price.IsPositive() {
		return SolveOutput{}, s.unachievable(in)
	}

	out.RawPrice = price
	out.ProductPrice = roundToIncrement(price, s.cfg.PriceIncrement)
	return out, nil
}

func (s iterativeSolver) unachievable(in SolveInput) error {
	d := in.DutyRate.Add(in.MPFRate)
	return &MarginUnachievableError{
		TargetMargin:        in.TargetMargin,
		MaxAchievableMargin: one.Sub(d).Sub(in.VariableRate).Sub(s.cfg.FeasibilityGuard),
		EffectiveDutyRate:   in.DutyRate,
		VariableRateSum:     in.VariableRate,
	}
}

// roundToIncrement rounds p to the nearest multiple of inc.
func roundToIncrement(p, inc decimal.Decimal) decimal.Decimal {
	if inc.IsZero() {
		return p
	}
	return p.Div(inc).Round(0).Mul(inc)
}
