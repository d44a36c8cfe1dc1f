package submission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/p5portal/backend-portal/internal/distributor"
	"github.com/p5portal/backend-portal/internal/events"
	"github.com/p5portal/backend-portal/internal/lock"
	"github.com/p5portal/backend-portal/internal/obs"
	"github.com/p5portal/backend-portal/internal/reconcile"
)

var (
	// ErrItemLocked indicates an edit against a non-pending submission.
	ErrItemLocked = errors.New("submission is no longer editable")
	// ErrInvalidEdit indicates an edit payload the reconciler cannot apply.
	ErrInvalidEdit = errors.New("invalid edit")
)

// Additional editable fields outside the pricing reconciler.
const (
	FieldQuantity = "quantity"
	FieldNote     = "note"
)

type adminStore interface {
	Get(ctx context.Context, id int64) (Submission, error)
	GetItem(ctx context.Context, itemID int64) (Item, string, error)
	UpdateItem(ctx context.Context, it Item) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]Submission, int64, error)
}

type catalogProvider interface {
	Catalog(ctx context.Context) (*distributor.Catalog, error)
}

type eventBus interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Edit is one back-office change to a submission item.
type Edit struct {
	Field           string  `json:"field"`
	Value           float64 `json:"value"`
	DistributorCode string  `json:"distributorCode,omitempty"`
	Quantity        int     `json:"quantity,omitempty"`
	Note            string  `json:"note,omitempty"`
}

// Service is the back-office side of submissions: item adjustments and
// status transitions. Every pricing edit flows through the reconciler
// so derived fields stay consistent.
type Service struct {
	Store        adminStore
	Reconciler   reconcile.Reconciler
	Distributors catalogProvider
	Events       eventBus
	// Coalescer, when set, debounces item writes instead of hitting
	// the store on every keystroke.
	Coalescer *Coalescer
	// Locks serialises concurrent edits of the same item across
	// instances.
	Locks *lock.Locker
}

// EditItem applies one edit to a pending item and returns the updated
// item. The item must belong to submissionID; items of approved or
// rejected submissions are locked.
func (s *Service) EditItem(ctx context.Context, submissionID, itemID int64, edit Edit) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("submission service not configured")
	}
	if s.Locks != nil {
		var out Item
		err := s.Locks.WithLock(ctx, "lock:item:"+strconv.FormatInt(itemID, 10), 5*time.Second, func(ctx context.Context) error {
			var err error
			out, err = s.editItem(ctx, submissionID, itemID, edit)
			return err
		})
		return out, err
	}
	return s.editItem(ctx, submissionID, itemID, edit)
}

func (s *Service) editItem(ctx context.Context, submissionID, itemID int64, edit Edit) (Item, error) {
	item, status, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if item.SubmissionID != submissionID {
		return Item{}, ErrNotFound
	}
	if status != StatusPending {
		return Item{}, fmt.Errorf("%w: status %q", ErrItemLocked, status)
	}
	if s.Coalescer != nil {
		if queued, ok := s.Coalescer.Pending(itemID); ok {
			item = queued
		}
	}

	switch edit.Field {
	case FieldQuantity:
		if edit.Quantity <= 0 {
			return Item{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidEdit)
		}
		item.Quantity = edit.Quantity
	case FieldNote:
		item.Note = strings.TrimSpace(edit.Note)
	default:
		recEdit := reconcile.Edit{Field: reconcile.Field(edit.Field), Value: edit.Value}
		if recEdit.Field == reconcile.FieldDistributor {
			if s.Distributors == nil {
				return Item{}, errors.New("distributor catalog not configured")
			}
			cat, err := s.Distributors.Catalog(ctx)
			if err != nil {
				return Item{}, err
			}
			d, err := cat.Resolve(edit.DistributorCode)
			if err != nil {
				return Item{}, err
			}
			recEdit.DistributorCode = d.Code
			recEdit.RuleTag = d.RuleTag
		}
		line, err := s.Reconciler.Apply(item.Line(), recEdit)
		if err != nil {
			if errors.Is(err, reconcile.ErrUnknownField) || errors.Is(err, reconcile.ErrNoStreetReference) {
				return Item{}, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
			}
			return Item{}, err
		}
		item.ApplyLine(line)
	}

	// With a coalescer the adjusted event fires from its persist hook,
	// so a burst of keystrokes notifies once, with the stored state.
	if s.Coalescer != nil {
		s.Coalescer.Schedule(item)
	} else {
		if err := s.Store.UpdateItem(ctx, item); err != nil {
			return Item{}, err
		}
		s.EmitItemAdjusted(ctx, item)
	}
	if obs.SubmissionItemEditTotal != nil {
		obs.SubmissionItemEditTotal.WithLabelValues(edit.Field, "applied").Inc()
	}
	return item, nil
}

// EmitItemAdjusted publishes the adjusted event for a persisted item.
func (s *Service) EmitItemAdjusted(ctx context.Context, item Item) {
	s.emit(ctx, events.TopicItemAdjusted, item.SubmissionID, map[string]any{
		"submissionId": item.SubmissionID,
		"itemId":       item.ID,
	})
}

// Approve moves a pending submission to approved.
func (s *Service) Approve(ctx context.Context, id int64) (Submission, error) {
	return s.transition(ctx, id, StatusApproved, events.TopicSubmissionApproved)
}

// Reject moves a pending submission to rejected.
func (s *Service) Reject(ctx context.Context, id int64) (Submission, error) {
	return s.transition(ctx, id, StatusRejected, events.TopicSubmissionRejected)
}

func (s *Service) transition(ctx context.Context, id int64, status, topic string) (Submission, error) {
	if s == nil || s.Store == nil {
		return Submission{}, errors.New("submission service not configured")
	}
	sub, err := s.Store.Get(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if sub.Status != StatusPending {
		return Submission{}, fmt.Errorf("%w: status %q", ErrItemLocked, sub.Status)
	}
	if err := s.Store.UpdateStatus(ctx, id, status); err != nil {
		return Submission{}, err
	}
	sub.Status = status
	if obs.SubmissionStatusTotal != nil {
		obs.SubmissionStatusTotal.WithLabelValues(status, "applied").Inc()
	}
	s.emit(ctx, topic, id, map[string]any{
		"submissionId":    id,
		"dealerId":        sub.DealerID,
		"distributorCode": sub.DistributorCode,
		"status":          status,
	})
	return sub, nil
}

// Queue lists pending submissions for the dashboard.
func (s *Service) Queue(ctx context.Context, limit, offset int) ([]Submission, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("submission service not configured")
	}
	return s.Store.ListByStatus(ctx, StatusPending, limit, offset)
}

// Emit failures never fail the write they describe.
func (s *Service) emit(ctx context.Context, topic string, submissionID int64, payload any) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, aggregateID(submissionID), payload)
}

func aggregateID(submissionID int64) string {
	return "submission:" + strconv.FormatInt(submissionID, 10)
}
