// Package cart validates a dealer's order draft, allocates its lines
// to distributors and submits one order per distributor group.
package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Violation codes reported by Validate.
const (
	CodeInvalidQuantity  = "INVALID_QUANTITY"
	CodeMissingDisti     = "MISSING_DISTRIBUTOR"
	CodeMissingCustomSrc = "MISSING_CUSTOM_SOURCE"
	CodeUnknownDistiCode = "UNKNOWN_DISTRIBUTOR_CODE"
)

// Line is one row of the dealer's cart as composed in the portal.
type Line struct {
	ProductID  int64  `json:"productId" validate:"required,gt=0"`
	Quantity   int    `json:"quantity"`
	ChosenCode string `json:"chosenCode,omitempty"`

	// DealerPrice of zero means "take the product's invoice baseline".
	DealerPrice float64 `json:"dealerPrice,omitempty"`

	StreetGross        float64 `json:"streetGross,omitempty"`
	StreetSource       string  `json:"streetSource,omitempty"`
	StreetSourceCustom string  `json:"streetSourceCustom,omitempty"`
	Serial             string  `json:"serial,omitempty"`
	Note               string  `json:"note,omitempty"`
}

// State is the full order draft a dealer submits.
type State struct {
	DealerID          uuid.UUID  `json:"-"`
	Lines             []Line     `json:"lines" validate:"required,min=1,dive"`
	ProjectID         *int64     `json:"projectId,omitempty"`
	RequestedDelivery string     `json:"requestedDelivery" validate:"omitempty,oneof=immediately scheduled"`
	DeliveryDate      *time.Time `json:"deliveryDate,omitempty"`
	OrderComment      string     `json:"orderComment,omitempty"`
	DealerReference   string     `json:"dealerReference,omitempty"`
	CustomerName      string     `json:"customerName,omitempty"`
	CustomerEmail     string     `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerPhone     string     `json:"customerPhone,omitempty"`
}

// Violation points at one invalid cart line.
type Violation struct {
	LineIndex int    `json:"lineIndex"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ValidationError aggregates all violations of a draft. Submission
// never starts while any line is invalid.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cart validation failed: %d violation(s)", len(e.Violations))
}

// Group is the portion of a cart going to one distributor.
type Group struct {
	Code  string
	Lines []Line
}

// GroupLines buckets lines by their effective distributor code,
// lower-cased, preserving first-appearance order. Lines without a
// chosen code fall back to fallbackCode.
func GroupLines(lines []Line, fallbackCode string) []Group {
	var groups []Group
	index := map[string]int{}
	for _, l := range lines {
		code := strings.ToLower(strings.TrimSpace(l.ChosenCode))
		if code == "" {
			code = strings.ToLower(strings.TrimSpace(fallbackCode))
		}
		i, ok := index[code]
		if !ok {
			i = len(groups)
			index[code] = i
			groups = append(groups, Group{Code: code})
		}
		groups[i].Lines = append(groups[i].Lines, l)
	}
	return groups
}
