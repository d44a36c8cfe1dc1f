package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/p5portal/backend-portal/internal/common"
	"github.com/p5portal/backend-portal/internal/events"
	"github.com/p5portal/backend-portal/internal/notify"
)

func placedEvent(t *testing.T, payload map[string]any) events.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Event{
		ID:          1,
		Topic:       events.TopicSubmissionPlaced,
		AggregateID: "submission:42",
		Payload:     raw,
		OccurredAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestNotifySendsToCustomerAndBackOffice(t *testing.T) {
	t.Parallel()

	outbox := &common.InMemoryEmail{}
	n := notify.EmailNotifier{
		Mail:       outbox,
		Enabled:    true,
		BackOffice: "orders@example.ch",
	}

	err := n.Notify(context.Background(), placedEvent(t, map[string]any{
		"submissionId":    42,
		"distributorCode": "ep",
		"customerEmail":   "kunde@example.ch",
	}))
	require.NoError(t, err)
	require.Len(t, outbox.Outbox, 2)
	require.Equal(t, "kunde@example.ch", outbox.Outbox[0].To)
	require.Equal(t, "Bestellung eingegangen", outbox.Outbox[0].Subject)
	require.Contains(t, outbox.Outbox[0].HTML, "Bestellung: 42")
	require.Contains(t, outbox.Outbox[0].HTML, "Distributor: ep")
	require.Equal(t, "orders@example.ch", outbox.Outbox[1].To)
}

func TestNotifyDisabledOrToggledOff(t *testing.T) {
	t.Parallel()

	outbox := &common.InMemoryEmail{}

	n := notify.EmailNotifier{Mail: outbox, Enabled: false}
	require.NoError(t, n.Notify(context.Background(), placedEvent(t, map[string]any{"customerEmail": "a@b.ch"})))
	require.Empty(t, outbox.Outbox)

	n = notify.EmailNotifier{
		Mail:         outbox,
		Enabled:      true,
		TopicToggles: map[string]bool{events.TopicSubmissionPlaced: false},
	}
	require.NoError(t, n.Notify(context.Background(), placedEvent(t, map[string]any{"customerEmail": "a@b.ch"})))
	require.Empty(t, outbox.Outbox)
}

func TestNotifyWithoutRecipient(t *testing.T) {
	t.Parallel()

	outbox := &common.InMemoryEmail{}
	n := notify.EmailNotifier{Mail: outbox, Enabled: true}

	ev := placedEvent(t, map[string]any{"submissionId": 42})
	ev.Topic = events.TopicItemAdjusted
	require.NoError(t, n.Notify(context.Background(), ev))
	require.Empty(t, outbox.Outbox, "no recipient and no back office copy for adjustments")
}
