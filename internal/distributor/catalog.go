// Package distributor maintains the distributor master data and
// resolves the codes dealers attach to order lines.
package distributor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCode indicates a code that resolves to no known distributor.
	ErrUnknownCode = errors.New("unknown distributor code")
	// ErrMissingLineDistributor indicates a line that allows specific
	// distributors but has none chosen.
	ErrMissingLineDistributor = errors.New("no distributor chosen for line")
	// ErrMissingMainDistributor indicates that neither the line nor the
	// cart names a distributor to fall back to.
	ErrMissingMainDistributor = errors.New("no main distributor configured")
)

// Distributor is one purchasing channel for dealer orders.
type Distributor struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	RuleTag string `json:"ruleTag"`
	Active  bool   `json:"active"`
}

// Catalog is an in-memory index of distributors keyed by lower-cased
// code. Build one from a store listing, then resolve against it.
type Catalog struct {
	byCode map[string]Distributor
}

// NewCatalog indexes the given distributors. Later duplicates of a
// code win.
func NewCatalog(list []Distributor) *Catalog {
	byCode := make(map[string]Distributor, len(list))
	for _, d := range list {
		code := strings.ToLower(strings.TrimSpace(d.Code))
		if code == "" {
			continue
		}
		byCode[code] = d
	}
	return &Catalog{byCode: byCode}
}

// Lookup reports the distributor for a code, matching case-insensitively.
func (c *Catalog) Lookup(code string) (Distributor, bool) {
	if c == nil {
		return Distributor{}, false
	}
	d, ok := c.byCode[strings.ToLower(strings.TrimSpace(code))]
	return d, ok
}

// Resolve is Lookup with an error carrying the offending code.
func (c *Catalog) Resolve(code string) (Distributor, error) {
	d, ok := c.Lookup(code)
	if !ok {
		return Distributor{}, fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
	return d, nil
}

// ResolveLine determines the distributor for one order line: the
// chosen code when present, else the cart's fallback code. A line
// whose product restricts distributors must choose explicitly.
func (c *Catalog) ResolveLine(chosen string, allowedCount int, fallback string) (Distributor, error) {
	chosen = strings.TrimSpace(chosen)
	if chosen == "" {
		if allowedCount > 0 {
			return Distributor{}, ErrMissingLineDistributor
		}
		if strings.TrimSpace(fallback) == "" {
			return Distributor{}, ErrMissingMainDistributor
		}
		return c.Resolve(fallback)
	}
	return c.Resolve(chosen)
}

// Len returns the number of indexed distributors.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byCode)
}

// PreferenceRule proposes a distributor code for product categories.
// Substring matches any allowed code containing it, case-insensitively.
type PreferenceRule struct {
	Categories []string `json:"categories"`
	Substring  string   `json:"substring"`
}

// DefaultPreferenceRules reflects the current purchasing policy per
// product category tag.
func DefaultPreferenceRules() []PreferenceRule {
	return []PreferenceRule{
		{Categories: []string{"tv", "tme", "ht", "soundbar"}, Substring: "ep"},
		{Categories: []string{"dim"}, Substring: "engel"},
		{Categories: []string{"pds", "pa"}, Substring: "semi"},
	}
}

// PickPreferred selects the code a line should default to for a
// product category, out of the codes allowed for the product. Falls
// back to the first allowed code; returns "" when none are allowed.
func PickPreferred(rules []PreferenceRule, category string, allowed []string) string {
	if len(allowed) == 0 {
		return ""
	}
	category = strings.ToLower(strings.TrimSpace(category))
	for _, rule := range rules {
		for _, c := range rule.Categories {
			if category != strings.ToLower(c) {
				continue
			}
			for _, code := range allowed {
				if strings.Contains(strings.ToLower(code), strings.ToLower(rule.Substring)) {
					return code
				}
			}
		}
	}
	return allowed[0]
}
