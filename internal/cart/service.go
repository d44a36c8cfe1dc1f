package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/p5portal/backend-portal/internal/distributor"
	"github.com/p5portal/backend-portal/internal/events"
	"github.com/p5portal/backend-portal/internal/obs"
	"github.com/p5portal/backend-portal/internal/product"
	"github.com/p5portal/backend-portal/internal/reconcile"
	"github.com/p5portal/backend-portal/internal/submission"
)

var (
	// ErrPartialSubmission indicates that at least one distributor
	// group was persisted and at least one failed. Persisted groups
	// stay persisted.
	ErrPartialSubmission = errors.New("some order groups failed")
	// ErrEmptyCart indicates a submit with no lines.
	ErrEmptyCart = errors.New("cart has no lines")
)

type catalogProvider interface {
	Catalog(ctx context.Context) (*distributor.Catalog, error)
}

type productReader interface {
	Get(ctx context.Context, id int64) (product.Product, error)
	AllowedCodes(ctx context.Context, productID int64) ([]string, error)
}

type gateway interface {
	CreateHeader(ctx context.Context, sub submission.Submission) (int64, error)
	InsertItems(ctx context.Context, submissionID int64, items []submission.Item) error
}

type eventBus interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service turns a validated cart into one submission per distributor.
type Service struct {
	Distributors catalogProvider
	Products     productReader
	Store        gateway
	Events       eventBus
	Reconciler   reconcile.Reconciler
	// DefaultCode receives lines whose product allows no specific
	// distributor, usually the main purchasing channel.
	DefaultCode string
}

// GroupResult reports the outcome for one distributor group.
type GroupResult struct {
	DistributorCode string `json:"distributorCode"`
	SubmissionID    int64  `json:"submissionId,omitempty"`
	Error           string `json:"error,omitempty"`

	err error
}

// Failed reports whether the group was not persisted completely.
func (g GroupResult) Failed() bool { return g.err != nil }

// Result is the outcome of one cart submit across all groups.
type Result struct {
	Groups []GroupResult `json:"groups"`
}

// Validate checks every line of the draft and resolves every
// distributor code it references. It returns a ValidationError
// carrying all violations, or nil when the draft may be submitted.
func (s *Service) Validate(ctx context.Context, state State) error {
	if s == nil || s.Products == nil || s.Distributors == nil {
		return errors.New("cart service not configured")
	}
	if len(state.Lines) == 0 {
		return ErrEmptyCart
	}
	cat, err := s.Distributors.Catalog(ctx)
	if err != nil {
		return err
	}

	var violations []Violation
	for i, l := range state.Lines {
		if l.Quantity <= 0 {
			violations = append(violations, Violation{
				LineIndex: i,
				Code:      CodeInvalidQuantity,
				Message:   "quantity must be positive",
			})
		}
		allowed, err := s.Products.AllowedCodes(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if l.StreetSource == submission.SourceOther && strings.TrimSpace(l.StreetSourceCustom) == "" {
			violations = append(violations, Violation{
				LineIndex: i,
				Code:      CodeMissingCustomSrc,
				Message:   "a custom street price source must be named",
			})
		}
		if _, err := cat.ResolveLine(l.ChosenCode, len(allowed), s.DefaultCode); err != nil {
			switch {
			case errors.Is(err, distributor.ErrMissingLineDistributor),
				errors.Is(err, distributor.ErrMissingMainDistributor):
				violations = append(violations, Violation{
					LineIndex: i,
					Code:      CodeMissingDisti,
					Message:   "a distributor must be chosen for this product",
				})
			case errors.Is(err, distributor.ErrUnknownCode):
				violations = append(violations, Violation{
					LineIndex: i,
					Code:      CodeUnknownDistiCode,
					Message:   err.Error(),
				})
			default:
				return err
			}
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Submit validates the draft, groups its lines by distributor and
// persists one submission per group, in group order. A failing group
// does not roll back groups persisted before it.
func (s *Service) Submit(ctx context.Context, state State) (Result, error) {
	if s == nil || s.Store == nil {
		return Result{}, errors.New("cart service not configured")
	}
	if err := s.Validate(ctx, state); err != nil {
		return Result{}, err
	}
	cat, err := s.Distributors.Catalog(ctx)
	if err != nil {
		return Result{}, err
	}

	groups := GroupLines(state.Lines, s.DefaultCode)
	result := Result{Groups: make([]GroupResult, 0, len(groups))}
	failures := 0
	for _, g := range groups {
		gr := s.submitGroup(ctx, cat, state, g)
		if gr.Failed() {
			failures++
		}
		if obs.SubmissionPlacedTotal != nil {
			outcome := "placed"
			if gr.Failed() {
				outcome = "failed"
			}
			obs.SubmissionPlacedTotal.WithLabelValues(g.Code, outcome).Inc()
		}
		result.Groups = append(result.Groups, gr)
	}
	if failures == 0 {
		return result, nil
	}
	if failures == len(result.Groups) {
		return result, fmt.Errorf("all order groups failed: %w", firstErr(result.Groups))
	}
	return result, fmt.Errorf("%w: %d of %d", ErrPartialSubmission, failures, len(result.Groups))
}

func (s *Service) submitGroup(ctx context.Context, cat *distributor.Catalog, state State, g Group) GroupResult {
	gr := GroupResult{DistributorCode: g.Code}
	d, err := cat.Resolve(g.Code)
	if err != nil {
		return gr.fail(err)
	}

	items := make([]submission.Item, 0, len(g.Lines))
	for _, l := range g.Lines {
		p, err := s.Products.Get(ctx, l.ProductID)
		if err != nil {
			return gr.fail(fmt.Errorf("product %d: %w", l.ProductID, err))
		}
		items = append(items, s.buildItem(d, p, l))
	}

	header := submission.Submission{
		DealerID:          state.DealerID,
		DistributorCode:   d.Code,
		ProjectID:         state.ProjectID,
		RequestedDelivery: state.RequestedDelivery,
		DeliveryDate:      state.DeliveryDate,
		OrderComment:      state.OrderComment,
		DealerReference:   state.DealerReference,
		CustomerName:      state.CustomerName,
		CustomerEmail:     state.CustomerEmail,
		CustomerPhone:     state.CustomerPhone,
	}
	id, err := s.Store.CreateHeader(ctx, header)
	if err != nil {
		return gr.fail(fmt.Errorf("create order for %s: %w", g.Code, err))
	}
	gr.SubmissionID = id
	if err := s.Store.InsertItems(ctx, id, items); err != nil {
		// The header stays behind on purpose so the gap is visible.
		return gr.fail(fmt.Errorf("insert items for order %d: %w", id, err))
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicSubmissionPlaced, fmt.Sprintf("submission:%d", id), map[string]any{
			"submissionId":    id,
			"dealerId":        state.DealerID,
			"distributorCode": d.Code,
			"items":           len(items),
		})
	}
	return gr
}

// buildItem snapshots the full pricing state of a line at submit time.
func (s *Service) buildItem(d distributor.Distributor, p product.Product, l Line) submission.Item {
	price := l.DealerPrice
	if price <= 0 {
		price = p.Baseline()
	}
	it := submission.Item{
		ProductID:          p.ID,
		SKU:                p.SKU,
		Name:               p.Name,
		Quantity:           l.Quantity,
		DistributorCode:    d.Code,
		RuleTag:            d.RuleTag,
		DealerPrice:        price,
		Baseline:           p.Baseline(),
		RetailPrice:        p.RetailPrice,
		VRG:                p.VRG,
		StreetGross:        l.StreetGross,
		StreetSource:       l.StreetSource,
		StreetSourceCustom: l.StreetSourceCustom,
		Serial:             l.Serial,
		Note:               l.Note,
	}
	it.ApplyLine(s.Reconciler.Refresh(it.Line()))
	return it
}

func (g GroupResult) fail(err error) GroupResult {
	g.err = err
	g.Error = err.Error()
	return g
}

func firstErr(groups []GroupResult) error {
	for _, g := range groups {
		if g.err != nil {
			return g.err
		}
	}
	return nil
}
