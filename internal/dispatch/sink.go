// Package dispatch defines the narrow value-sink contract the flush
// engine emits derived metrics through (spec.md §6 "Value sink"), plus
// an adapter onto a telegraf.Accumulator for when this plugin runs
// inside a real Telegraf agent.
package dispatch

import (
	"time"

	"github.com/influxdata/telegraf"
)

// Kind tags how a Record's value should be interpreted downstream: a
// point-in-time gauge (carried in Record.Gauge), or a monotonically
// accumulating derive/counter the host daemon computes a rate from
// (carried in Record.Derive).
type Kind int

const (
	GaugeValue Kind = iota
	DeriveValue
)

// Record is one dispatched sample, shaped directly after the value_list_t
// collectd's statsd plugin builds in statsd_metric_submit_unsafe: a
// single scalar tagged with a type and type_instance, not a field map.
type Record struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string // "gauge" | "derive" | "latency" | "objects"
	TypeInstance   string
	Time           time.Time
	Kind           Kind
	Gauge          float64
	Derive         int64
}

// Sink is the host daemon's value-dispatch interface. Dispatch failure
// is reported to the caller; the flush engine continues with the
// remaining metrics rather than aborting (spec.md §7).
type Sink interface {
	Dispatch(Record) error
}

// AccumulatorSink adapts Sink onto telegraf.Accumulator, the real value
// sink of the teacher's host daemon.
type AccumulatorSink struct {
	Acc telegraf.Accumulator
}

func (s AccumulatorSink) Dispatch(r Record) error {
	tags := map[string]string{
		"plugin_instance": r.PluginInstance,
		"type":            r.Type,
	}
	fields := map[string]interface{}{
		"value": valueOf(r),
	}
	measurement := r.Plugin + "_" + r.TypeInstance

	switch r.Kind {
	case DeriveValue:
		s.Acc.AddCounter(measurement, fields, tags, r.Time)
	default:
		s.Acc.AddGauge(measurement, fields, tags, r.Time)
	}
	return nil
}

func valueOf(r Record) float64 {
	if r.Kind == DeriveValue {
		return float64(r.Derive)
	}
	return r.Gauge
}
