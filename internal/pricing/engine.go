package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultTargetPriceRatio is used when the request does not set one.
var DefaultTargetPriceRatio = decimal.NewFromFloat(0.8)

// Engine orchestrates a pricing request: duty and tier lookups, price
// solving, tier optimization, the shipping cap, and the final
// feasibility gate. It holds no mutable state; concurrent Price calls
// are safe.
type Engine struct {
	tariffs TariffSource
	tiers   TierSource
	cfg     SolverConfig
}

// NewEngine builds an engine over the given reference data sources.
func NewEngine(tariffs TariffSource, tiers TierSource, cfg SolverConfig) *Engine {
	return &Engine{tariffs: tariffs, tiers: tiers, cfg: cfg}
}

// Price computes the listing price and shipping charge for one request.
// Lookup failures and algebraic infeasibility come back as typed errors
// with no result; a solved price that still loses money comes back as a
// Result with Feasible=false.
func (e *Engine) Price(ctx context.Context, req Request, fees FeeModel) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	cost := req.Cost.Div(req.ExchangeRate)
	targetRatio := req.TargetPriceRatio
	if targetRatio.IsZero() {
		targetRatio = DefaultTargetPriceRatio
	}

	var warnings []string
	weight := req.Weight
	if weight.LessThan(e.cfg.MinBillableWeight) {
		warnings = append(warnings, fmt.Sprintf(
			"weight %skg below carrier minimum, billed at %skg",
			weight.String(), e.cfg.MinBillableWeight.String()))
		weight = e.cfg.MinBillableWeight
	}

	// Duty and the first-pass tier are independent; fetch both at once.
	var (
		duty      DutyRate
		firstTier ShippingTier
		priceHint = cost.Mul(e.cfg.InitialEstimateMultiplier)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		duty, err = ResolveDutyRate(gctx, e.tariffs, req.Classification, req.OriginCountry)
		return err
	})
	g.Go(func() error {
		var err error
		firstTier, err = e.tiers.CheapestTier(gctx, weight, priceHint)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if duty.Approximate {
		warnings = append(warnings, fmt.Sprintf(
			"classification %s resolved via prefix %s; duty rate is approximate",
			req.Classification, duty.MatchedCode))
	}

	effDuty := duty.Effective(e.cfg.SalesTaxAllowance)
	varSum := fees.VariableRateSum()

	// Fail fast before touching any tier math.
	if v := CheckViability(effDuty, fees.MerchandiseProcessingRate, varSum, req.TargetMargin, e.cfg.FeasibilityGuard); !v.Feasible {
		return nil, &MarginUnachievableError{
			TargetMargin:        req.TargetMargin,
			MaxAchievableMargin: v.MaxAchievableMargin,
			EffectiveDutyRate:   effDuty,
			VariableRateSum:     varSum,
		}
	}

	solver := NewSolver(e.cfg, effDuty)
	solve := func(tier ShippingTier) (SolveOutput, error) {
		return solver.Solve(SolveInput{
			Cost:          cost,
			BaseShipping:  tier.BaseCost,
			TotalShipping: tier.TotalCost,
			DutyRate:      effDuty,
			MPFRate:       fees.MerchandiseProcessingRate,
			ServiceFee:    fees.CustomsServiceFee,
			InsertionFee:  fees.InsertionFee,
			VariableRate:  varSum,
			TargetMargin:  req.TargetMargin,
		})
	}

	firstOut, err := solve(firstTier)
	if err != nil {
		return nil, err
	}

	tier, out, optWarnings, err := e.optimizeTier(ctx, solve, weight, firstTier, firstOut, effDuty, fees, targetRatio)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, optWarnings...)

	productPrice := out.ProductPrice
	shippingCharge := tier.TotalCost

	// Marketplace categories can cap the buyer-facing shipping charge;
	// excess moves into the product price after the tier is final.
	if req.Category != "" {
		cap, ok, err := e.tiers.ShippingCap(ctx, req.Category)
		if err != nil {
			return nil, fmt.Errorf("shipping cap for %q: %w", req.Category, err)
		}
		if ok && shippingCharge.GreaterThan(cap) {
			excess := shippingCharge.Sub(cap)
			productPrice = productPrice.Add(excess)
			shippingCharge = cap
			warnings = append(warnings, fmt.Sprintf(
				"category shipping cap $%s applied; $%s moved into product price",
				cap.StringFixed(2), excess.StringFixed(2)))
		}
	}

	result := e.buildResult(cost, productPrice, shippingCharge, tier, effDuty, varSum, fees, out.Converged)
	result.Warnings = warnings
	result.TierName = tier.Name

	if tier.Name != firstTier.Name || !tier.TotalCost.Equal(firstTier.TotalCost) {
		alt := e.buildResult(cost, firstOut.ProductPrice, firstTier.TotalCost, firstTier, effDuty, varSum, fees, firstOut.Converged)
		result.Alternative = &Option{
			TierName:     firstTier.Name,
			ProductPrice: alt.ProductPrice,
			Shipping:     alt.ShippingCharge,
			TotalRevenue: alt.TotalRevenue,
			Profit:       alt.Profit,
			Margin:       alt.RealizedMargin,
			PriceRatio:   priceRatio(alt.ProductPrice, alt.TotalRevenue),
			Reason:       "cheapest tier",
		}
	}

	return result, nil
}

// solveFn resolves a product price for a candidate tier.
type solveFn func(ShippingTier) (SolveOutput, error)

// maxTierCandidates bounds the second-pass discrete search.
const maxTierCandidates = 10

// optimizeTier re-selects the shipping tier once a first-pass price is
// known. The tier must fund the price-implied duty and fees; among
// tiers that do, the one whose price ratio lands closest to the target
// wins, ties going to the cheaper tier. When no tier can fund the duty
// load the cheapest tier is kept and the result flagged underfunded.
func (e *Engine) optimizeTier(
	ctx context.Context,
	solve solveFn,
	weight decimal.Decimal,
	firstTier ShippingTier,
	firstOut SolveOutput,
	effDuty decimal.Decimal,
	fees FeeModel,
	targetRatio decimal.Decimal,
) (ShippingTier, SolveOutput, []string, error) {
	price := firstOut.ProductPrice
	requiredDDP := price.Mul(effDuty).
		Add(price.Mul(fees.MerchandiseProcessingRate)).
		Add(fees.CustomsServiceFee)
	requiredShipping := firstTier.BaseCost.Add(requiredDDP)

	candidates, err := e.tiers.TiersAbove(ctx, weight, requiredShipping, maxTierCandidates)
	if err != nil {
		return ShippingTier{}, SolveOutput{}, nil, fmt.Errorf("tier search: %w", err)
	}

	if len(candidates) == 0 {
		warning := fmt.Sprintf(
			"no tier funds the $%s duty-inclusive shipping requirement; using %s, DDP cost underfunded by $%s",
			requiredShipping.StringFixed(2), firstTier.Name,
			requiredShipping.Sub(firstTier.TotalCost).StringFixed(2))
		return firstTier, firstOut, []string{warning}, nil
	}

	var (
		best     ShippingTier
		bestOut  SolveOutput
		bestDiff decimal.Decimal
		found    bool
	)
	for _, cand := range candidates {
		out, err := solve(cand)
		if err != nil {
			return ShippingTier{}, SolveOutput{}, nil, err
		}
		ratio := priceRatio(out.ProductPrice, out.ProductPrice.Add(cand.TotalCost))
		diff := ratio.Sub(targetRatio).Abs()

		better := !found || diff.LessThan(bestDiff) ||
			(diff.Equal(bestDiff) && cand.TotalCost.LessThan(best.TotalCost))
		if better {
			best, bestOut, bestDiff, found = cand, out, diff, true
		}
	}
	return best, bestOut, nil, nil
}

// buildResult assembles the fee breakdown and profit for a final price
// and shipping charge. All duty and fee amounts are recomputed from the
// values passed in, so cap adjustments are reflected.
func (e *Engine) buildResult(
	cost, productPrice, shippingCharge decimal.Decimal,
	tier ShippingTier,
	effDuty, varSum decimal.Decimal,
	fees FeeModel,
	converged bool,
) *Result {
	totalRevenue := productPrice.Add(shippingCharge)
	dutyAmount := productPrice.Mul(effDuty)
	mpfAmount := productPrice.Mul(fees.MerchandiseProcessingRate)
	variableFees := totalRevenue.Mul(varSum)
	totalCost := cost.Add(tier.BaseCost).Add(dutyAmount).Add(mpfAmount).
		Add(fees.CustomsServiceFee).Add(fees.InsertionFee).Add(variableFees)
	profit := totalRevenue.Sub(totalCost)

	realizedMargin := decimal.Zero
	if !totalRevenue.IsZero() {
		realizedMargin = profit.Div(totalRevenue)
	}

	r := &Result{
		ProductPrice:                productPrice,
		ShippingCharge:              shippingCharge,
		TotalRevenue:                totalRevenue,
		DutyAmount:                  dutyAmount,
		MerchandiseProcessingAmount: mpfAmount,
		CustomsServiceFee:           fees.CustomsServiceFee,
		VariableFeesAmount:          variableFees,
		TotalCost:                   totalCost,
		Profit:                      profit,
		RealizedMargin:              realizedMargin,
		EffectiveDutyRate:           effDuty,
		VariableRateSum:             varSum,
		Converged:                   converged,
		DDU:                         dduQuote(productPrice, shippingCharge, effDuty, fees),
	}

	// Negative profit is never clamped; it fails the viability gate and
	// stays visible in the result.
	if profit.IsNegative() {
		r.Feasible = false
		r.Reason = fmt.Sprintf("solved price loses money: realized margin %s%%",
			realizedMargin.Mul(hundred).StringFixed(2))
	} else {
		r.Feasible = true
	}
	return r
}

// dduQuote strips prepaid duties out of a DDP product price: the DDP
// price covers duty, MPF and the brokerage fee, so the duty-unpaid
// price is (P - serviceFee) / (1 + dutyRate + mpfRate), and the buyer
// owes duty on that value at the border.
func dduQuote(productPrice, shippingCharge, effDuty decimal.Decimal, fees FeeModel) *DDUQuote {
	rate := effDuty.Add(fees.MerchandiseProcessingRate)
	dduProduct := productPrice.Sub(fees.CustomsServiceFee).Div(one.Add(rate)).Round(0)
	if dduProduct.IsNegative() {
		return nil
	}
	return &DDUQuote{
		ProductPrice: dduProduct,
		TotalPrice:   dduProduct.Add(shippingCharge),
		BuyerDuty:    dduProduct.Mul(rate).Round(2),
	}
}

// PriceBatch prices many items, isolating failures per item so a bad
// classification or weight never aborts the rest. Items run with
// bounded parallelism; each request is independent (no shared state).
func (e *Engine) PriceBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			res, err := e.Price(gctx, item.Request, item.Fees)
			br := BatchResult{ID: item.ID, Result: res}
			if err != nil {
				br.Err = err.Error()
			}
			results[i] = br
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors
	return results
}

func priceRatio(productPrice, totalRevenue decimal.Decimal) decimal.Decimal {
	if totalRevenue.IsZero() {
		return decimal.Zero
	}
	return productPrice.Div(totalRevenue)
}

func validate(req Request) error {
	switch {
	case !req.Cost.IsPositive():
		return fmt.Errorf("invalid request: cost must be positive")
	case !req.Weight.IsPositive():
		return fmt.Errorf("invalid request: weight must be positive")
	case !req.ExchangeRate.IsPositive():
		return fmt.Errorf("invalid request: exchange rate must be positive")
	case req.Classification == "":
		return fmt.Errorf("invalid request: classification code required")
	case req.OriginCountry == "":
		return fmt.Errorf("invalid request: origin country required")
	case !req.TargetMargin.IsPositive() || req.TargetMargin.GreaterThanOrEqual(one):
		return fmt.Errorf("invalid request: target margin must be in (0,1)")
	}
	return nil
}
