// Package metrics holds the Prometheus collectors shared by the three services.
// Labels stay low-cardinality: no session, user or parcel ids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatMessagesTotal counts answered chat messages by resolved action.
	ChatMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackit_chat_messages_total",
		Help: "Total number of chat messages answered, by resolved action.",
	}, []string{"action"})

	// ChatFailuresTotal counts chat turns whose collaborator query failed.
	ChatFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackit_chat_failures_total",
		Help: "Total number of chat turns answered with an internal error, by action.",
	}, []string{"action"})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackit_notifications_created_total",
		Help: "Total number of notifications stored, by type.",
	}, []string{"type"})

	PositionUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackit_position_updates_total",
		Help: "Total number of positions recorded, by subject kind (parcel or courier).",
	}, []string{"kind"})
)
