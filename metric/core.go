package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoreMetrics contains all coordination-level metrics (not component-specific)
type CoreMetrics struct {
	// Mount lifecycle metrics
	IslandsMounted prometheus.Gauge
	MountsTotal    *prometheus.CounterVec
	MountFailures  *prometheus.CounterVec

	// Event bus metrics
	MessagesPublished *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	HandlerFaults     *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec

	// Page update metrics
	PartialUpdates *prometheus.CounterVec
	Navigations    *prometheus.CounterVec

	// Relay metrics
	RelayConnected prometheus.Gauge
	RelayForwarded *prometheus.CounterVec
}

// NewCoreMetrics creates a new CoreMetrics instance with all coordination metrics
func NewCoreMetrics() *CoreMetrics {
	return &CoreMetrics{
		IslandsMounted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "islandkit",
				Subsystem: "islands",
				Name:      "mounted",
				Help:      "Current number of mounted islands",
			},
		),

		MountsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "islands",
				Name:      "mounts_total",
				Help:      "Total number of island mount attempts",
			},
			[]string{"type", "status"}, // status: success, duplicate, failure
		),

		MountFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "islands",
				Name:      "mount_failures_total",
				Help:      "Total number of island mount failures by reason",
			},
			[]string{"type", "reason"}, // reason: unknown_type, load_failure, render_failure, stale
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "bus",
				Name:      "messages_published_total",
				Help:      "Total number of messages published on the event bus",
			},
			[]string{"topic_root"},
		),

		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "bus",
				Name:      "messages_dropped_total",
				Help:      "Total number of messages published with zero matching subscribers",
			},
			[]string{"topic_root"},
		),

		HandlerFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "bus",
				Name:      "handler_faults_total",
				Help:      "Total number of subscriber handler faults recovered at the bus boundary",
			},
			[]string{"topic_root"},
		),

		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "islandkit",
				Subsystem: "bus",
				Name:      "publish_duration_seconds",
				Help:      "Synchronous delivery duration for a single publish",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"topic_root"},
		),

		PartialUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "pageupdate",
				Name:      "partial_updates_total",
				Help:      "Total number of partial page updates applied",
			},
			[]string{"status"}, // status: success, failure
		),

		Navigations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "pageupdate",
				Name:      "navigations_total",
				Help:      "Total number of client-side navigations performed",
			},
			[]string{"status"},
		),

		RelayConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "islandkit",
				Subsystem: "relay",
				Name:      "connected",
				Help:      "Relay connection status (1=connected, 0=disconnected)",
			},
		),

		RelayForwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "islandkit",
				Subsystem: "relay",
				Name:      "forwarded_total",
				Help:      "Total number of group messages forwarded through the relay",
			},
			[]string{"direction"}, // direction: outbound, inbound
		),
	}
}

// TopicRoot extracts the first token of a hierarchical topic for use as a
// bounded metric label. "island:a1:stateChange" yields "island".
func TopicRoot(topic string) string {
	for i := 0; i < len(topic); i++ {
		if topic[i] == ':' {
			return topic[:i]
		}
	}
	return topic
}
