// Package metrics exposes Prometheus counters for the booking lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsBooked counts session requests created, by subject.
	SessionsBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarlink_sessions_booked_total",
			Help: "Total number of session requests created",
		},
		[]string{"subject"},
	)

	// SessionTransitions counts status changes out of pending.
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarlink_session_transitions_total",
			Help: "Total number of session status transitions",
		},
		[]string{"status"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarlink_notifications_created_total",
			Help: "Total number of notifications recorded",
		},
		[]string{"type"},
	)

	NotificationsPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarlink_notifications_pushed_total",
			Help: "Notifications pushed to live websocket connections",
		},
		[]string{"outcome"},
	)

	EmailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarlink_email_deliveries_total",
			Help: "Outbound email delivery attempts",
		},
		[]string{"outcome"},
	)

	TutorCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarlink_tutor_cache_lookups_total",
			Help: "Tutor directory cache lookups",
		},
		[]string{"result"},
	)
)

func RecordBooking(subject string) {
	SessionsBooked.WithLabelValues(subject).Inc()
}

func RecordTransition(status string) {
	SessionTransitions.WithLabelValues(status).Inc()
}

func RecordNotification(kind string) {
	NotificationsCreated.WithLabelValues(kind).Inc()
}

func RecordPush(delivered bool) {
	if delivered {
		NotificationsPushed.WithLabelValues("delivered").Inc()
		return
	}
	NotificationsPushed.WithLabelValues("dropped").Inc()
}

func RecordEmail(err error) {
	if err != nil {
		EmailDeliveries.WithLabelValues("failed").Inc()
		return
	}
	EmailDeliveries.WithLabelValues("sent").Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		TutorCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	TutorCacheLookups.WithLabelValues("miss").Inc()
}
