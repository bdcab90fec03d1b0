package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SnapshotsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_snapshots_applied_total",
		Help: "Feed snapshots applied to the local mirror",
	})
	SnapshotFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_snapshot_failures_total",
		Help: "Feed snapshot deliveries that failed",
	})
	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_created_total",
		Help: "Posts successfully written to the store",
	})
	PostsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_deleted_total",
		Help: "Posts successfully removed from the store",
	})
	AuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Sign-up and sign-in attempts rejected by the identity provider",
	})
	FeedSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_subscribers",
		Help: "Currently connected feed websocket clients",
	})
)

// MustRegister registers all collectors with the given registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SnapshotsApplied,
		SnapshotFailures,
		PostsCreated,
		PostsDeleted,
		AuthFailures,
		FeedSubscribers,
	)
}
