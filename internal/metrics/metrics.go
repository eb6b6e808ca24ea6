// Package metrics exposes prometheus counters for the invite event path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invite_tracker_events_total",
		Help: "Gateway events processed by the reconciliation engine.",
	}, []string{"event"})

	JoinsAttributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invite_tracker_joins_attributed_total",
		Help: "Member joins attributed to an invite.",
	})

	JoinsUntracked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invite_tracker_joins_untracked_total",
		Help: "Member joins with no detectable invite delta (vanity URL, races).",
	})

	MilestonesFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invite_tracker_milestones_total",
		Help: "Milestone notifications sent to guild owners.",
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invite_tracker_notification_failures_total",
		Help: "Owner notifications that failed to deliver.",
	})

	StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invite_tracker_store_write_failures_total",
		Help: "Durable document writes that failed and were swallowed.",
	})
)
