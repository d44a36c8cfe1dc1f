// Package reconcile recomputes the derived fields of an order line
// after a single field edit. Every edit funnels through the same
// refresh so the stored line stays internally consistent no matter
// which field changed.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/p5portal/backend-portal/internal/pricing"
)

var (
	ErrUnknownField      = errors.New("unknown editable field")
	ErrNoStreetReference = errors.New("no street net reference for margin edit")
)

// Field names one editable origin on a line.
type Field string

const (
	FieldStreetGross  Field = "street_gross"
	FieldStreetMargin Field = "street_margin"
	FieldDealerPrice  Field = "dealer_price"
	FieldInvest       Field = "invest"
	FieldDistributor  Field = "distributor"
)

// Line is the pricing state of one submitted item. Pointer fields are
// nil when the underlying reference is missing or non-positive.
type Line struct {
	ItemID          int64
	DistributorCode string
	RuleTag         string

	DealerPrice    float64
	Invest         float64
	PriceOnInvoice float64
	Baseline       float64

	RetailPrice float64
	VRG         float64
	NetRetail   *float64
	ListMargin  *float64

	StreetGross        float64
	StreetNet          *float64
	StreetSource       string
	StreetSourceCustom string
	StreetMargin       *float64
}

// Edit is one admin-side change to a line. Value carries the numeric
// payload; DistributorCode and RuleTag are only read for
// FieldDistributor.
type Edit struct {
	Field           Field
	Value           float64
	DistributorCode string
	RuleTag         string
}

// Reconciler applies edits using a fixed parameter set.
type Reconciler struct {
	Pricing pricing.Params
}

// Apply returns the line after the edit with all derived fields
// recomputed. The input line is not modified. Applying the resulting
// line's own values again yields the same line.
func (r Reconciler) Apply(l Line, e Edit) (Line, error) {
	switch e.Field {
	case FieldStreetGross:
		l.StreetGross = e.Value
	case FieldStreetMargin:
		net := r.Pricing.NetPrice(l.StreetGross, l.VRG)
		if net == nil {
			return l, ErrNoStreetReference
		}
		l.DealerPrice = r.Pricing.PriceFromTargetMargin(*net, e.Value)
	case FieldDealerPrice:
		// Non-positive prices are ignored, the previous price stands.
		if e.Value > 0 {
			l.DealerPrice = pricing.Round2(e.Value)
		}
	case FieldInvest:
		l.DealerPrice = r.Pricing.DealerPriceFromInvest(l.RuleTag, e.Value, l.Baseline)
	case FieldDistributor:
		l.DistributorCode = e.DistributorCode
		l.RuleTag = e.RuleTag
	default:
		return l, fmt.Errorf("%w: %q", ErrUnknownField, e.Field)
	}
	return r.refresh(l), nil
}

// Refresh recomputes every derived field from the line's primary
// values without changing any of them.
func (r Reconciler) Refresh(l Line) Line {
	return r.refresh(l)
}

func (r Reconciler) refresh(l Line) Line {
	l.StreetNet = r.Pricing.NetPrice(l.StreetGross, l.VRG)
	l.NetRetail = r.Pricing.NetPrice(l.RetailPrice, l.VRG)

	l.StreetMargin = nil
	if l.StreetNet != nil {
		l.StreetMargin = r.Pricing.MarginPercent(*l.StreetNet, l.DealerPrice)
	}
	l.ListMargin = nil
	if l.NetRetail != nil {
		l.ListMargin = r.Pricing.MarginPercent(*l.NetRetail, l.DealerPrice)
	}

	l.PriceOnInvoice = r.Pricing.InvoicePrice(l.DealerPrice)
	l.Invest = r.Pricing.InvestByRule(l.RuleTag, l.DealerPrice, l.Baseline)
	return l
}
