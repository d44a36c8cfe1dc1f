// Package submission persists grouped dealer orders and the admin-side
// adjustments made to them afterwards.
package submission

import (
	"time"

	"github.com/google/uuid"

	"github.com/p5portal/backend-portal/internal/reconcile"
)

// Submission statuses. A submission is editable only while pending.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Requested delivery modes.
const (
	DeliveryImmediately = "immediately"
	DeliveryScheduled   = "scheduled"
)

// Street price sources a dealer can cite for a competitor price.
var StreetSources = []string{
	"Digitec", "Mediamarkt", "Interdiscount", "Fnac", "Brack", "Fust", "Andere",
}

// SourceOther marks a free-text street price source.
const SourceOther = "Andere"

// Submission is one order header sent to a single distributor.
type Submission struct {
	ID                int64      `json:"id"`
	DealerID          uuid.UUID  `json:"dealerId"`
	DistributorCode   string     `json:"distributorCode"`
	Status            string     `json:"status"`
	ProjectID         *int64     `json:"projectId,omitempty"`
	RequestedDelivery string     `json:"requestedDelivery"`
	DeliveryDate      *time.Time `json:"deliveryDate,omitempty"`
	OrderComment      string     `json:"orderComment,omitempty"`
	DealerReference   string     `json:"dealerReference,omitempty"`
	CustomerName      string     `json:"customerName,omitempty"`
	CustomerEmail     string     `json:"customerEmail,omitempty"`
	CustomerPhone     string     `json:"customerPhone,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	Items             []Item     `json:"items,omitempty"`
}

// Item is one order line inside a submission, carrying the full
// pricing state at submit time plus later admin adjustments.
type Item struct {
	ID           int64  `json:"id"`
	SubmissionID int64  `json:"submissionId"`
	ProductID    int64  `json:"productId"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`

	DistributorCode string `json:"distributorCode"`
	RuleTag         string `json:"ruleTag"`

	DealerPrice    float64  `json:"dealerPrice"`
	Invest         float64  `json:"invest"`
	PriceOnInvoice float64  `json:"priceOnInvoice"`
	Baseline       float64  `json:"baseline"`
	RetailPrice    float64  `json:"retailPrice"`
	VRG            float64  `json:"vrg"`
	NetRetail      *float64 `json:"netRetail,omitempty"`
	ListMargin     *float64 `json:"listMargin,omitempty"`

	StreetGross        float64  `json:"streetGross"`
	StreetNet          *float64 `json:"streetNet,omitempty"`
	StreetSource       string   `json:"streetSource,omitempty"`
	StreetSourceCustom string   `json:"streetSourceCustom,omitempty"`
	StreetMargin       *float64 `json:"streetMargin,omitempty"`

	Serial string `json:"serial,omitempty"`
	Note   string `json:"note,omitempty"`
}

// Line projects the item's pricing state for reconciliation.
func (it Item) Line() reconcile.Line {
	return reconcile.Line{
		ItemID:             it.ID,
		DistributorCode:    it.DistributorCode,
		RuleTag:            it.RuleTag,
		DealerPrice:        it.DealerPrice,
		Invest:             it.Invest,
		PriceOnInvoice:     it.PriceOnInvoice,
		Baseline:           it.Baseline,
		RetailPrice:        it.RetailPrice,
		VRG:                it.VRG,
		NetRetail:          it.NetRetail,
		ListMargin:         it.ListMargin,
		StreetGross:        it.StreetGross,
		StreetNet:          it.StreetNet,
		StreetSource:       it.StreetSource,
		StreetSourceCustom: it.StreetSourceCustom,
		StreetMargin:       it.StreetMargin,
	}
}

// ApplyLine copies a reconciled pricing state back onto the item.
func (it *Item) ApplyLine(l reconcile.Line) {
	it.DistributorCode = l.DistributorCode
	it.RuleTag = l.RuleTag
	it.DealerPrice = l.DealerPrice
	it.Invest = l.Invest
	it.PriceOnInvoice = l.PriceOnInvoice
	it.Baseline = l.Baseline
	it.NetRetail = l.NetRetail
	it.ListMargin = l.ListMargin
	it.StreetGross = l.StreetGross
	it.StreetNet = l.StreetNet
	it.StreetMargin = l.StreetMargin
}
