// Package selfstats tracks the ingestion path's own operational health
// — packets/bytes received, parse errors, parse duration — the same
// concern the teacher's internalStats/selfstat.Stat fields cover in
// plugins/inputs/statsd/statsd.go. The teacher's own selfstat package
// wasn't part of the retrieval pack, so these are exposed as plain
// Prometheus collectors on a private registry instead (see DESIGN.md).
// None of this feeds back into the aggregation registry; it is strictly
// observational.
package selfstats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds one node's self-monitoring collectors.
type Stats struct {
	registry        *prometheus.Registry
	packetsReceived prometheus.Counter
	bytesReceived   prometheus.Counter
	parseErrors     prometheus.Counter
	parseDuration   prometheus.Histogram
}

// New creates a Stats instance scoped to nodeName, registered on a
// private registry (never the global default) so that multiple node
// instances, including those spun up repeatedly in tests, never
// collide on metric registration.
func New(nodeName string) *Stats {
	labels := prometheus.Labels{"node": nodeName}
	s := &Stats{
		registry: prometheus.NewRegistry(),
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "statsd",
			Name:        "udp_packets_received_total",
			Help:        "UDP datagrams received by this node.",
			ConstLabels: labels,
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "statsd",
			Name:        "udp_bytes_received_total",
			Help:        "UDP bytes received by this node.",
			ConstLabels: labels,
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "statsd",
			Name:        "parse_errors_total",
			Help:        "Malformed StatsD lines discarded by this node.",
			ConstLabels: labels,
		}),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "statsd",
			Name:        "parse_duration_seconds",
			Help:        "Time spent parsing one datagram's lines.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
	s.registry.MustRegister(s.packetsReceived, s.bytesReceived, s.parseErrors, s.parseDuration)
	return s
}

// ObservePacket records one received datagram of n bytes.
func (s *Stats) ObservePacket(n int) {
	s.packetsReceived.Inc()
	s.bytesReceived.Add(float64(n))
}

// ObserveParseError records one discarded malformed line.
func (s *Stats) ObserveParseError() {
	s.parseErrors.Inc()
}

// ObserveParseDuration records the wall-clock time spent parsing one
// datagram's lines.
func (s *Stats) ObserveParseDuration(d time.Duration) {
	s.parseDuration.Observe(d.Seconds())
}

// Registry exposes the private registry for a host daemon that wants to
// scrape it alongside its own metrics.
func (s *Stats) Registry() *prometheus.Registry {
	return s.registry
}
