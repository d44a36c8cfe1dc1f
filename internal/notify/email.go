// Package notify turns submission events into emails. The request
// path only enqueues; the worker renders and sends.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/p5portal/backend-portal/internal/common"
	"github.com/p5portal/backend-portal/internal/events"
)

// EmailNotifier sends order emails for selected topics.
type EmailNotifier struct {
	Mail    common.EmailSender
	Enabled bool
	From    string
	// BackOffice receives a copy of every placed order.
	BackOffice   string
	TopicToggles map[string]bool
}

// Notify implements the events.Notifier interface.
func (n EmailNotifier) Notify(_ context.Context, event events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if n.TopicToggles != nil {
		if enabled, ok := n.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	subject := subjectFor(event.Topic)
	body := bodyFor(event.Topic, payload, event.OccurredAt)

	var errs []string
	if to := extractRecipient(payload); to != "" {
		if err := n.Mail.Send(to, subject, body); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if n.BackOffice != "" && event.Topic == events.TopicSubmissionPlaced {
		if err := n.Mail.Send(n.BackOffice, subject, body); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("email notify: %s", strings.Join(errs, "; "))
	}
	return nil
}

func extractRecipient(payload map[string]any) string {
	keys := []string{"customerEmail", "dealerEmail", "email", "recipient"}
	for _, key := range keys {
		if val, ok := payload[key]; ok {
			if s, ok := val.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicSubmissionPlaced:
		return "Bestellung eingegangen"
	case events.TopicSubmissionApproved:
		return "Bestellung freigegeben"
	case events.TopicSubmissionRejected:
		return "Bestellung abgelehnt"
	case events.TopicItemAdjusted:
		return "Bestellposition angepasst"
	default:
		return fmt.Sprintf("Benachrichtigung %s", topic)
	}
}

func bodyFor(topic string, payload map[string]any, occurred time.Time) string {
	summary := fmt.Sprintf("Ereignis %s vom %s.", topic, occurred.Format(time.RFC3339))
	if id, ok := numberField(payload, "submissionId"); ok {
		summary += fmt.Sprintf("\nBestellung: %d", id)
	}
	if code, ok := payload["distributorCode"].(string); ok && code != "" {
		summary += fmt.Sprintf("\nDistributor: %s", code)
	}
	if items, ok := numberField(payload, "items"); ok {
		summary += fmt.Sprintf("\nPositionen: %d", items)
	}
	if note, ok := payload["message"].(string); ok && note != "" {
		summary += "\n" + note
	}
	return summary
}

func numberField(payload map[string]any, key string) (int64, bool) {
	if v, ok := payload[key].(float64); ok {
		return int64(v), true
	}
	return 0, false
}
