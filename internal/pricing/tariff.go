package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TariffRate is the base duty rate for a classification code.
type TariffRate struct {
	Code         string
	BaseDutyRate decimal.Decimal
	Description  string
}

// CountryAdjustment is an additive duty surcharge for an origin country.
type CountryAdjustment struct {
	Country        string
	AdditionalRate decimal.Decimal
	Kind           string
	Active         bool
}

// DutyRate is the resolved duty for a (classification, origin) pair.
type DutyRate struct {
	Base        decimal.Decimal
	Additional  decimal.Decimal
	Code        string // code as requested
	MatchedCode string // code that actually matched (may be a prefix)
	Approximate bool   // true when resolved via prefix fallback
}

// Effective returns the rate applied to product value: base duty plus
// the origin-country surcharge plus the destination sales-tax allowance.
func (d DutyRate) Effective(salesTaxAllowance decimal.Decimal) decimal.Decimal {
	return d.Base.Add(d.Additional).Add(salesTaxAllowance)
}

// TariffSource supplies raw tariff reference data by exact key.
type TariffSource interface {
	TariffRate(ctx context.Context, code string) (TariffRate, bool, error)
	CountryAdjustment(ctx context.Context, country string) (CountryAdjustment, bool, error)
}

// Classification codes are matched at these prefix lengths, longest
// first, after exact match fails. Standard HTS structure: 10-digit
// statistical suffix, 8-digit rate line, 6-digit subheading, 4-digit
// heading, 2-digit chapter.
var prefixLengths = []int{8, 6, 4, 2}

// ResolveDutyRate looks up the duty rate for a classification code and
// origin country. Exact code match is tried first (with and without
// dots); failing that, progressively shorter prefixes. A prefix match
// is flagged Approximate. Inactive country adjustments are ignored.
func ResolveDutyRate(ctx context.Context, src TariffSource, code, origin string) (DutyRate, error) {
	normalized := strings.ReplaceAll(code, ".", "")
	if normalized == "" {
		return DutyRate{}, fmt.Errorf("resolve duty rate: %w", ErrClassificationNotFound)
	}

	rate, matched, approximate, err := lookupTariff(ctx, src, code, normalized)
	if err != nil {
		return DutyRate{}, err
	}
	if matched == "" {
		return DutyRate{}, fmt.Errorf("resolve duty rate for %q: %w", code, ErrClassificationNotFound)
	}

	duty := DutyRate{
		Base:        rate,
		Code:        code,
		MatchedCode: matched,
		Approximate: approximate,
	}

	adj, ok, err := src.CountryAdjustment(ctx, origin)
	if err != nil {
		return DutyRate{}, fmt.Errorf("country adjustment for %q: %w", origin, err)
	}
	if ok && adj.Active {
		duty.Additional = adj.AdditionalRate
	}
	return duty, nil
}

func lookupTariff(ctx context.Context, src TariffSource, code, normalized string) (decimal.Decimal, string, bool, error) {
	for _, term := range []string{code, normalized} {
		tr, ok, err := src.TariffRate(ctx, term)
		if err != nil {
			return decimal.Zero, "", false, fmt.Errorf("tariff lookup %q: %w", term, err)
		}
		if ok {
			return tr.BaseDutyRate, tr.Code, false, nil
		}
	}

	for _, n := range prefixLengths {
		if len(normalized) <= n {
			continue
		}
		prefix := normalized[:n]
		tr, ok, err := src.TariffRate(ctx, prefix)
		if err != nil {
			return decimal.Zero, "", false, fmt.Errorf("tariff prefix lookup %q: %w", prefix, err)
		}
		if ok {
			return tr.BaseDutyRate, tr.Code, true, nil
		}
	}
	return decimal.Zero, "", false, nil
}
