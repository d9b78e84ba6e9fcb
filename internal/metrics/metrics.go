// Package metrics exposes the server's Prometheus metrics: browse and
// translate call volume, subscription/monitored-item counts, and the
// publish scheduler's tick and notification throughput.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BrowseRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opcua_browse_requests_total",
			Help: "Total number of Browse service calls by result status",
		},
		[]string{"status"},
	)

	BrowseContinuationPointsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opcua_browse_continuation_points_rejected_total",
			Help: "Total number of Browse calls that failed because the single continuation-point slot was occupied",
		},
	)

	TranslateRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opcua_translate_browse_paths_requests_total",
			Help: "Total number of TranslateBrowsePathsToNodeIds calls by result status",
		},
		[]string{"status"},
	)

	SubscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "opcua_subscriptions_active",
			Help: "Number of currently active subscriptions",
		},
	)

	MonitoredItemsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "opcua_monitored_items_active",
			Help: "Number of currently active monitored items",
		},
	)

	PublishTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opcua_publish_ticks_total",
			Help: "Total number of publish scheduler ticks executed",
		},
	)

	NotificationsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opcua_notifications_sent_total",
			Help: "Total number of monitored item notifications delivered in PublishResponses",
		},
	)

	KeepAlivesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opcua_keepalives_sent_total",
			Help: "Total number of keepalive PublishResponses sent (no data change)",
		},
	)

	SubscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "opcua_subscriptions_expired_total",
			Help: "Total number of subscriptions deleted due to lifetime counter expiry",
		},
	)

	PublishLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opcua_publish_latency_seconds",
			Help:    "Time between a PublishRequest arriving and its response completing",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		BrowseRequestsTotal,
		BrowseContinuationPointsRejectedTotal,
		TranslateRequestsTotal,
		SubscriptionsActive,
		MonitoredItemsActive,
		PublishTicksTotal,
		NotificationsSentTotal,
		KeepAlivesSentTotal,
		SubscriptionsExpiredTotal,
		PublishLatency,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an operation and records its duration to a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
