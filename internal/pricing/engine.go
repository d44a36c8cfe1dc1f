package pricing

import "math"

// Params holds the fiscal and distributor constants every price
// derivation depends on. Zero value is unusable; start from
// DefaultParams and override from config.
type Params struct {
	// VATRate is the value-added tax rate applied to street gross
	// prices, e.g. 0.081 for 8.1%.
	VATRate float64
	// InvoiceDivisor converts a dealer price to the pre-discount
	// invoice base (price / InvoiceDivisor).
	InvoiceDivisor float64
	// InvoiceDiscount is the distributor discount factor applied to
	// the invoice base.
	InvoiceDiscount float64
	// Skonto is the early-payment discount factor.
	Skonto float64
}

// DefaultParams returns the parameter set currently in force for the
// Swiss market.
func DefaultParams() Params {
	return Params{
		VATRate:         0.081,
		InvoiceDivisor:  0.92,
		InvoiceDiscount: 0.865,
		Skonto:          0.97,
	}
}

// Invest rule tags as stored on distributor rows. Unknown tags fall
// back to RuleDefault.
const (
	RuleDefault    = "default"
	RuleEPFormula  = "ep_formula"
	RuleSimpleDiff = "simple_diff"
)

// Round2 rounds to two decimals, halves away from zero.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal, halves away from zero.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}

// NetPrice derives the net reference price from a gross street price:
// strip VAT, then subtract the recycling fee. Returns nil when the
// gross price is missing or non-positive.
func (p Params) NetPrice(gross, vrg float64) *float64 {
	if gross <= 0 || math.IsNaN(gross) || math.IsInf(gross, 0) {
		return nil
	}
	v := Round2(gross/(1+p.VATRate) - vrg)
	return &v
}

// MarginPercent computes the dealer margin of price against the net
// reference, in percent with one decimal. Returns nil when the
// reference is missing or non-positive.
func (p Params) MarginPercent(netRef, price float64) *float64 {
	if netRef <= 0 || math.IsNaN(netRef) || math.IsInf(netRef, 0) {
		return nil
	}
	v := Round1((netRef - price) / netRef * 100)
	return &v
}

// PriceFromTargetMargin inverts MarginPercent: the dealer price that
// yields the given margin against netRef. Zero when the reference is
// missing or non-positive.
func (p Params) PriceFromTargetMargin(netRef, marginPct float64) float64 {
	if netRef <= 0 || math.IsNaN(netRef) || math.IsInf(netRef, 0) {
		return 0
	}
	return Round2(netRef * (1 - marginPct/100))
}

// InvoicePrice computes the effective price on invoice for a dealer
// price: gross up to the invoice base, then apply the distributor
// discount and skonto.
func (p Params) InvoicePrice(price float64) float64 {
	if p.InvoiceDivisor == 0 {
		return 0
	}
	return Round2(price / p.InvoiceDivisor * p.InvoiceDiscount * p.Skonto)
}

// InvestByRule computes the distributor investment for a new dealer
// price under the given rule tag. baseline is the reference price on
// invoice before the change. Unknown tags behave like RuleDefault.
func (p Params) InvestByRule(rule string, newPrice, baseline float64) float64 {
	switch rule {
	case RuleSimpleDiff:
		return Round2(baseline - newPrice)
	default:
		// RuleDefault, RuleEPFormula and anything unrecognized.
		return Round2(baseline - p.InvoicePrice(newPrice))
	}
}

// DealerPriceFromInvest inverts InvestByRule: given a target invest it
// returns the dealer price that produces it under the rule.
func (p Params) DealerPriceFromInvest(rule string, invest, baseline float64) float64 {
	switch rule {
	case RuleSimpleDiff:
		return Round2(baseline - invest)
	default:
		d := p.InvoiceDiscount * p.Skonto
		if d == 0 {
			return 0
		}
		return Round2((baseline - invest) / d * p.InvoiceDivisor)
	}
}
