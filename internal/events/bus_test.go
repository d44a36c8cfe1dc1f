package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/p5portal/backend-portal/internal/events"
)

type stubStore struct {
	last events.Event
}

func (s *stubStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	s.last = events.Event{
		ID:          1,
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	return s.last, nil
}

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	payload := map[string]any{"submissionId": int64(42)}
	event, err := bus.Emit(context.Background(), events.TopicSubmissionPlaced, "submission:42", payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicSubmissionPlaced, store.last.Topic)
	require.JSONEq(t, `{"submissionId":42}`, string(store.last.Payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, float64(42), decoded["submissionId"])
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}

	_, err := bus.Emit(context.Background(), " ", "submission:1", nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), events.TopicItemAdjusted, "", nil)
	require.Error(t, err)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("smtp down")}
	bus := events.Bus{Store: &stubStore{}, Notifiers: []events.Notifier{notifier}}

	event, err := bus.Emit(context.Background(), events.TopicSubmissionApproved, "submission:7", nil)
	require.Error(t, err)
	require.Equal(t, int64(1), event.ID, "event persists even when a notifier fails")
}
