// Package flush implements the flush engine (spec.md §4.F): one
// synchronous, ordered walk of a node's registry per interval, emitting
// one or more dispatch.Record per metric and resetting per-interval
// state. Dispatch failures are collected but never stop the walk.
package flush

import (
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ingestd/statsd-node/internal/aggregation"
	"github.com/ingestd/statsd-node/internal/dispatch"
	"github.com/ingestd/statsd-node/internal/receiver"
)

const pluginName = "statsd"

// Run walks registry once, emitting every tracked metric through sink as
// one or more dispatch.Record, all stamped with the same now (spec.md §9
// "a shared flush timestamp applies to every record emitted by one Run
// call, not just a single metric's timer series"). Host identifies the
// node's host in each Record. An entry is skipped and removed from the
// registry only when it saw no updates this interval *and* its
// corresponding delete_* flag is set; every other entry is emitted
// regardless of whether it was touched this interval (an idle counter
// or gauge re-reports its last value, an idle set reports its
// post-reset cardinality, an idle timer reports NaN/0 — spec.md §4.F).
func Run(now time.Time, reg *aggregation.Registry, cfg receiver.Config, host string, sink dispatch.Sink) error {
	var errs *multierror.Error

	reg.Iterate(func(name string, m *aggregation.Metric) bool {
		idle := m.Updates == 0
		if idle && deleteFlag(cfg, m.Type) {
			return true
		}

		switch m.Type {
		case aggregation.Counter:
			errs = multierror.Append(errs, emitCounter(now, cfg, host, name, m, sink))
		case aggregation.Gauge:
			errs = multierror.Append(errs, emitGauge(now, cfg, host, name, m, sink))
		case aggregation.Set:
			errs = multierror.Append(errs, emitSet(now, cfg, host, name, m, sink))
		case aggregation.Timer:
			errs = multierror.Append(errs, emitTimer(now, cfg, host, name, m, sink))
		}

		m.Updates = 0
		switch m.Type {
		case aggregation.Set:
			m.Set = make(map[string]struct{})
		case aggregation.Timer:
			if m.Histogram != nil {
				m.Histogram.Reset()
			}
		}
		return false
	})

	return errs.ErrorOrNil()
}

func deleteFlag(cfg receiver.Config, t aggregation.Type) bool {
	switch t {
	case aggregation.Counter:
		return cfg.DeleteCounters
	case aggregation.Timer:
		return cfg.DeleteTimers
	case aggregation.Gauge:
		return cfg.DeleteGauges
	case aggregation.Set:
		return cfg.DeleteSets
	default:
		return false
	}
}

// composeName applies the node's global and per-type prefixes/postfix,
// matching spec.md §3's "Naming" option group.
func composeName(cfg receiver.Config, typePrefix, name string) string {
	return cfg.GlobalPrefix + typePrefix + name + cfg.GlobalPostfix
}

func record(host, typeInstance, dataType string, kind dispatch.Kind, gauge float64, derive int64, t time.Time) dispatch.Record {
	return dispatch.Record{
		Host:           host,
		Plugin:         pluginName,
		PluginInstance: typeInstance,
		Type:           dataType,
		TypeInstance:   typeInstance,
		Time:           t,
		Kind:           kind,
		Gauge:          gauge,
		Derive:         derive,
	}
}

// emitCounter dispatches a counter's two derived series sharing one
// timestamp: a monotonically accumulating "derive" series and a
// point-in-time "gauge" snapshot of the same accumulator, without
// resetting the accumulator itself (spec.md §4.F, §9). Dispatched every
// interval the entry survives, even if untouched since the last flush.
func emitCounter(now time.Time, cfg receiver.Config, host, name string, m *aggregation.Metric, sink dispatch.Sink) error {
	full := composeName(cfg, cfg.CounterPrefix, name)

	var errs *multierror.Error
	errs = multierror.Append(errs, sink.Dispatch(record(host, full, "derive", dispatch.DeriveValue, 0, int64(m.Value), now)))
	errs = multierror.Append(errs, sink.Dispatch(record(host, full, "gauge", dispatch.GaugeValue, m.Value, 0, now)))
	return errs.ErrorOrNil()
}

func emitGauge(now time.Time, cfg receiver.Config, host, name string, m *aggregation.Metric, sink dispatch.Sink) error {
	full := composeName(cfg, cfg.GaugePrefix, name)
	return sink.Dispatch(record(host, full, "gauge", dispatch.GaugeValue, m.Value, 0, now))
}

func emitSet(now time.Time, cfg receiver.Config, host, name string, m *aggregation.Metric, sink dispatch.Sink) error {
	full := composeName(cfg, cfg.SetPrefix, name)
	return sink.Dispatch(record(host, full, "objects", dispatch.GaugeValue, float64(len(m.Set)), 0, now))
}

// emitTimer dispatches a timer's derived series in the fixed order
// spec.md §3/§4.F documents: average, then the optionally-enabled lower,
// upper, sum, percentiles, and count. When no sample was recorded this
// interval the histogram is empty (freshly created or just Reset): the
// latency-valued series report NaN and -count reports 0, rather than
// being skipped (spec.md §4.F, testable property 5).
func emitTimer(now time.Time, cfg receiver.Config, host, name string, m *aggregation.Metric, sink dispatch.Sink) error {
	var h *aggregation.Histogram
	if m.Histogram != nil {
		h = m.Histogram
	}
	empty := h == nil || h.Count() == 0

	base := composeName(cfg, cfg.TimerPrefix, name)

	var errs *multierror.Error
	emit := func(suffix, dataType string, kind dispatch.Kind, gauge float64, derive int64) {
		typeInstance := base
		if suffix != "" {
			typeInstance = base + "-" + suffix
		}
		errs = multierror.Append(errs, sink.Dispatch(record(host, typeInstance, dataType, kind, gauge, derive, now)))
	}

	value := func(f func(*aggregation.Histogram) time.Duration) float64 {
		if empty {
			return math.NaN()
		}
		return aggregation.DurationToSeconds(f(h))
	}

	// The average carries the "-average" suffix unless the node is
	// configured to leave metric names as is, in which case it goes out
	// under the bare name. The other series always keep their suffixes.
	avg := value((*aggregation.Histogram).Average)
	if cfg.LeaveMetricsNameASIS {
		errs = multierror.Append(errs, sink.Dispatch(record(host, base, "latency", dispatch.GaugeValue, avg, 0, now)))
	} else {
		emit("average", "latency", dispatch.GaugeValue, avg, 0)
	}

	if cfg.TimerLower {
		emit("lower", "latency", dispatch.GaugeValue, value((*aggregation.Histogram).Min), 0)
	}
	if cfg.TimerUpper {
		emit("upper", "latency", dispatch.GaugeValue, value((*aggregation.Histogram).Max), 0)
	}
	if cfg.TimerSum {
		emit("sum", "latency", dispatch.GaugeValue, value((*aggregation.Histogram).Sum), 0)
	}
	for _, p := range cfg.TimerPercentiles {
		pct := p
		v := math.NaN()
		if !empty {
			v = aggregation.DurationToSeconds(h.Percentile(pct))
		}
		suffix := fmt.Sprintf("percentile-%.0f", pct)
		emit(suffix, "latency", dispatch.GaugeValue, v, 0)
	}
	if cfg.TimerCount {
		count := uint64(0)
		if h != nil {
			count = h.Count()
		}
		emit("count", "gauge", dispatch.GaugeValue, float64(count), 0)
	}

	return errs.ErrorOrNil()
}
