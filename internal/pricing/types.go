package pricing

import "github.com/shopspring/decimal"

// Request describes one item to price. Cost is in the source currency
// and is converted with ExchangeRate; every output field is settlement
// currency (USD).
type Request struct {
	Cost           decimal.Decimal `json:"cost"`
	Weight         decimal.Decimal `json:"weightKg"`
	TargetMargin   decimal.Decimal `json:"targetMargin"`
	Classification string          `json:"classification"`
	OriginCountry  string          `json:"originCountry"`
	ExchangeRate   decimal.Decimal `json:"exchangeRate"`

	// Category drives an optional marketplace shipping cap.
	Category string `json:"category,omitempty"`
	// TargetPriceRatio is the desired productPrice/totalRevenue ratio
	// for tier optimization; zero means the 0.8 default.
	TargetPriceRatio decimal.Decimal `json:"targetPriceRatio,omitempty"`
}

// Option is one priced configuration: a tier plus the product price
// solved for it. The optimizer's pick becomes the Result; the cheapest
// tier's option is kept as the alternative.
type Option struct {
	TierName      string          `json:"tierName"`
	ProductPrice  decimal.Decimal `json:"productPrice"`
	Shipping      decimal.Decimal `json:"shipping"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	Profit        decimal.Decimal `json:"profit"`
	Margin        decimal.Decimal `json:"margin"`
	PriceRatio    decimal.Decimal `json:"priceRatio"`
	Reason        string          `json:"reason,omitempty"`
}

// DDUQuote is the duty-unpaid variant of a result: the product price
// with duties stripped, and what the buyer would owe at the border.
type DDUQuote struct {
	ProductPrice decimal.Decimal `json:"productPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	BuyerDuty    decimal.Decimal `json:"buyerDuty"`
}

// Result is the full landed-cost pricing breakdown. All monetary fields
// are settlement currency. Feasible implies Profit >= 0; an infeasible
// result still carries the realized numbers for diagnostics.
type Result struct {
	ProductPrice   decimal.Decimal `json:"productPrice"`
	ShippingCharge decimal.Decimal `json:"shippingCharge"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`

	DutyAmount                  decimal.Decimal `json:"dutyAmount"`
	MerchandiseProcessingAmount decimal.Decimal `json:"merchandiseProcessingAmount"`
	CustomsServiceFee           decimal.Decimal `json:"customsServiceFee"`
	VariableFeesAmount          decimal.Decimal `json:"variableFeesAmount"`
	TotalCost                   decimal.Decimal `json:"totalCost"`
	Profit                      decimal.Decimal `json:"profit"`
	RealizedMargin              decimal.Decimal `json:"realizedMargin"`

	EffectiveDutyRate decimal.Decimal `json:"effectiveDutyRate"`
	VariableRateSum   decimal.Decimal `json:"variableRateSum"`

	Feasible  bool     `json:"feasible"`
	Reason    string   `json:"reason,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Converged bool     `json:"converged"`

	TierName    string    `json:"tierName"`
	DDU         *DDUQuote `json:"ddu,omitempty"`
	Alternative *Option   `json:"alternative,omitempty"`
}

// BatchItem is one entry of a batch pricing call.
type BatchItem struct {
	ID      string   `json:"id"`
	Request Request  `json:"request"`
	Fees    FeeModel `json:"-"`
}

// BatchResult pairs a batch item with its outcome. Err is the error
// string so batch output stays serializable.
type BatchResult struct {
	ID     string  `json:"id"`
	Result *Result `json:"result,omitempty"`
	Err    string  `json:"error,omitempty"`
}
