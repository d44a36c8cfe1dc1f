package distributor

import (
	"errors"
	"testing"
)

func sampleCatalog() *Catalog {
	return NewCatalog([]Distributor{
		{ID: 1, Code: "ep", Name: "Electronic Partner", RuleTag: "ep_formula", Active: true},
		{ID: 2, Code: "Alltron", Name: "Alltron AG", RuleTag: "default", Active: true},
		{ID: 3, Code: "semi", Name: "Semitron", RuleTag: "simple_diff", Active: true},
	})
}

func TestCatalogLookupCaseInsensitive(t *testing.T) {
	c := sampleCatalog()

	for _, code := range []string{"ep", "EP", " Ep "} {
		d, ok := c.Lookup(code)
		if !ok || d.ID != 1 {
			t.Fatalf("Lookup(%q) = %+v, %v; want distributor 1", code, d, ok)
		}
	}

	d, ok := c.Lookup("alltron")
	if !ok || d.Code != "Alltron" {
		t.Fatalf("Lookup should keep the stored code casing, got %+v", d)
	}
}

func TestCatalogResolveUnknown(t *testing.T) {
	c := sampleCatalog()

	if _, err := c.Resolve("nonexistent"); !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
	if _, err := c.Resolve("semi"); err != nil {
		t.Fatalf("Resolve(semi): %v", err)
	}
}

func TestPickPreferred(t *testing.T) {
	rules := DefaultPreferenceRules()

	cases := []struct {
		category string
		allowed  []string
	}{
		{"tv", []string{"alltron", "ep", "semi"}},
		{"TME", []string{"ep"}},
		{"dim", []string{"engel", "ep"}},
		{"pds", []string{"alltron", "semi"}},
		{"unknown", []string{"alltron", "semi"}},
	}
	for _, tc := range cases {
		got := PickPreferred(rules, tc.category, tc.allowed)
		found := false
		for _, code := range tc.allowed {
			if code == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("PickPreferred(%q, %v) = %q, not in allowed set", tc.category, tc.allowed, got)
		}
	}

	if got := PickPreferred(rules, "tv", nil); got != "" {
		t.Fatalf("PickPreferred with no allowed codes = %q, want empty", got)
	}
	if got := PickPreferred(rules, "unknown", []string{"alltron", "semi"}); got != "alltron" {
		t.Fatalf("fallback should be the first allowed code, got %q", got)
	}
}
