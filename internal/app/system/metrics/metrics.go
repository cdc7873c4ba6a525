// internal/app/system/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow transition counters, exposed on /metrics.
var (
	FriendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerhub_friend_requests_total",
			Help: "Friend request transitions by outcome.",
		},
		[]string{"outcome"}, // sent | accepted | rejected | unfriended
	)

	CollaborationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerhub_collaboration_requests_total",
			Help: "Listing collaboration request transitions by outcome.",
		},
		[]string{"outcome"}, // requested | accepted | rejected
	)

	ReviewerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peerhub_reviewer_transitions_total",
			Help: "Reviewer application transitions.",
		},
		[]string{"transition"}, // submitted | approved | rejected | revoked | withdrawn
	)

	NotificationsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerhub_notifications_written_total",
			Help: "Notification messages appended to user inboxes.",
		},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerhub_notification_failures_total",
			Help: "Notification writes that failed and were dropped.",
		},
	)

	SweepRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peerhub_pending_sweep_repairs_total",
			Help: "One-sided pending friend entries cleared by the reconciliation sweep.",
		},
	)
)
