package reconcile

import (
	"errors"
	"math"
	"testing"

	"github.com/p5portal/backend-portal/internal/pricing"
)

func baseLine() Line {
	return Line{
		ItemID:          1,
		DistributorCode: "ep",
		RuleTag:         pricing.RuleDefault,
		DealerPrice:     380,
		Baseline:        400,
		RetailPrice:     499,
		VRG:             2.5,
		StreetGross:     450,
		StreetSource:    "Digitec",
	}
}

func linesEqual(a, b Line) bool {
	ptrEq := func(x, y *float64) bool {
		if x == nil || y == nil {
			return x == y
		}
		return math.Abs(*x-*y) < 0.02
	}
	return a.DealerPrice == b.DealerPrice &&
		math.Abs(a.Invest-b.Invest) < 0.02 &&
		a.PriceOnInvoice == b.PriceOnInvoice &&
		ptrEq(a.StreetNet, b.StreetNet) &&
		ptrEq(a.StreetMargin, b.StreetMargin) &&
		ptrEq(a.NetRetail, b.NetRetail) &&
		ptrEq(a.ListMargin, b.ListMargin)
}

func TestApplyStreetGross(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}

	got, err := r.Apply(baseLine(), Edit{Field: FieldStreetGross, Value: 432})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantNet := r.Pricing.NetPrice(432, 2.5)
	if got.StreetNet == nil || *got.StreetNet != *wantNet {
		t.Fatalf("StreetNet = %v, want %v", got.StreetNet, *wantNet)
	}
	if got.StreetMargin == nil {
		t.Fatalf("StreetMargin should be recomputed")
	}
	if got.DealerPrice != 380 {
		t.Fatalf("street gross edit must not move the dealer price")
	}

	got, err = r.Apply(baseLine(), Edit{Field: FieldStreetGross, Value: 0})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.StreetNet != nil || got.StreetMargin != nil {
		t.Fatalf("zero street gross must clear the street reference, got net=%v margin=%v", got.StreetNet, got.StreetMargin)
	}
}

func TestApplyStreetMargin(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}

	got, err := r.Apply(baseLine(), Edit{Field: FieldStreetMargin, Value: 10})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.StreetMargin == nil || math.Abs(*got.StreetMargin-10) > 0.1 {
		t.Fatalf("StreetMargin = %v, want ~10", got.StreetMargin)
	}
	if got.Invest == 0 || got.PriceOnInvoice == 0 {
		t.Fatalf("invest and invoice price must follow the new price")
	}

	noRef := baseLine()
	noRef.StreetGross = 0
	if _, err := r.Apply(noRef, Edit{Field: FieldStreetMargin, Value: 10}); !errors.Is(err, ErrNoStreetReference) {
		t.Fatalf("expected ErrNoStreetReference, got %v", err)
	}
}

func TestApplyDealerPriceIgnoresNonPositive(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}

	got, err := r.Apply(baseLine(), Edit{Field: FieldDealerPrice, Value: -5})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.DealerPrice != 380 {
		t.Fatalf("non-positive price edit must keep the old price, got %v", got.DealerPrice)
	}

	got, err = r.Apply(baseLine(), Edit{Field: FieldDealerPrice, Value: 359.9})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.DealerPrice != 359.9 {
		t.Fatalf("DealerPrice = %v, want 359.9", got.DealerPrice)
	}
	if got.Invest != r.Pricing.InvestByRule(pricing.RuleDefault, 359.9, 400) {
		t.Fatalf("invest not recomputed for new price")
	}
}

func TestApplyInvest(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}

	got, err := r.Apply(baseLine(), Edit{Field: FieldInvest, Value: 45})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if math.Abs(got.Invest-45) > 0.05 {
		t.Fatalf("Invest = %v, want ~45", got.Invest)
	}
	want := r.Pricing.DealerPriceFromInvest(pricing.RuleDefault, 45, 400)
	if got.DealerPrice != want {
		t.Fatalf("DealerPrice = %v, want %v", got.DealerPrice, want)
	}
}

func TestApplyDistributorSwitchesRule(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}

	got, err := r.Apply(baseLine(), Edit{
		Field:           FieldDistributor,
		DistributorCode: "alltron",
		RuleTag:         pricing.RuleSimpleDiff,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.DistributorCode != "alltron" || got.RuleTag != pricing.RuleSimpleDiff {
		t.Fatalf("distributor not switched: %+v", got)
	}
	if got.Invest != r.Pricing.InvestByRule(pricing.RuleSimpleDiff, 380, 400) {
		t.Fatalf("invest must follow the new rule, got %v", got.Invest)
	}
	if got.DealerPrice != 380 {
		t.Fatalf("distributor switch must not move the price")
	}
}

func TestApplyUnknownField(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}
	if _, err := r.Apply(baseLine(), Edit{Field: "color"}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}

	edits := []Edit{
		{Field: FieldStreetGross, Value: 432},
		{Field: FieldStreetMargin, Value: 12.5},
		{Field: FieldDealerPrice, Value: 361},
		{Field: FieldInvest, Value: 52},
		{Field: FieldDistributor, DistributorCode: "alltron", RuleTag: pricing.RuleSimpleDiff},
	}
	for _, e := range edits {
		once, err := r.Apply(baseLine(), e)
		if err != nil {
			t.Fatalf("first apply of %s: %v", e.Field, err)
		}
		twice, err := r.Apply(once, e)
		if err != nil {
			t.Fatalf("second apply of %s: %v", e.Field, err)
		}
		if !linesEqual(once, twice) {
			t.Fatalf("%s not idempotent:\nonce:  %+v\ntwice: %+v", e.Field, once, twice)
		}
	}
}

func TestRefreshKeepsPrimaryValues(t *testing.T) {
	r := Reconciler{Pricing: pricing.DefaultParams()}

	l := r.Refresh(baseLine())
	if l.DealerPrice != 380 || l.StreetGross != 450 || l.RetailPrice != 499 {
		t.Fatalf("refresh must not touch primary values: %+v", l)
	}
	if l.NetRetail == nil || l.ListMargin == nil || l.StreetNet == nil || l.StreetMargin == nil {
		t.Fatalf("refresh must fill derived fields: %+v", l)
	}
}
