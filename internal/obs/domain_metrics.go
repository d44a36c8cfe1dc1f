package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SubmissionPlacedTotal counts submitted order groups per distributor and outcome.
	SubmissionPlacedTotal *prometheus.CounterVec
	// SubmissionItemEditTotal counts back office line edits by field and outcome.
	SubmissionItemEditTotal *prometheus.CounterVec
	// SubmissionStatusTotal counts approve and reject transitions by outcome.
	SubmissionStatusTotal *prometheus.CounterVec
	// CoalescedWriteTotal counts debounced line writes that reached the store.
	CoalescedWriteTotal prometheus.Counter
	// NotifyEmailTotal counts notification email deliveries by topic and outcome.
	NotifyEmailTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SubmissionPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_placed_total",
			Help:      "Count of submitted order groups by distributor and outcome.",
		}, []string{"distributor", "result"})
		SubmissionItemEditTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_item_edit_total",
			Help:      "Count of back office line edits by field and outcome.",
		}, []string{"field", "result"})
		SubmissionStatusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_status_total",
			Help:      "Count of submission status transitions by outcome.",
		}, []string{"status", "result"})
		CoalescedWriteTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_write_total",
			Help:      "Number of debounced line edits flushed to the store.",
		})
		NotifyEmailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_email_total",
			Help:      "Count of notification email deliveries by topic and outcome.",
		}, []string{"topic", "result"})

		mustRegisterCollector(reg, SubmissionPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SubmissionPlacedTotal = v
			}
		})
		mustRegisterCollector(reg, SubmissionItemEditTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SubmissionItemEditTotal = v
			}
		})
		mustRegisterCollector(reg, SubmissionStatusTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SubmissionStatusTotal = v
			}
		})
		mustRegisterCollector(reg, CoalescedWriteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CoalescedWriteTotal = v
			}
		})
		mustRegisterCollector(reg, NotifyEmailTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				NotifyEmailTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
