package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_ledger_operations_total",
		Help: "Ledger operations by name and outcome",
	}, []string{"operation", "outcome"})

	CreditedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_ledger_credited_minor_units_total",
		Help: "Minor units credited to accounts, by source",
	}, []string{"source"})

	WithdrawnTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "referral_ledger_withdrawn_minor_units_total",
		Help: "Minor units debited by withdrawal requests",
	})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_ledger_events_emitted_total",
		Help: "Events accepted onto the notification queue",
	}, []string{"type"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_ledger_events_dropped_total",
		Help: "Events dropped because the notification queue was full or closed",
	}, []string{"type"})

	NotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "referral_ledger_notify_failures_total",
		Help: "Notification deliveries that returned an error",
	}, []string{"notifier"})

	QuotaResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "referral_ledger_quota_reset_accounts_total",
		Help: "Accounts whose daily withdrawal counter was zeroed by the resetter",
	})
)

