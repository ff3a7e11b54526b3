package statsd

import "github.com/ingestd/statsd-node/internal/receiver"

// NodeConfig is one [[inputs.statsd.node]] table: a single ingestion
// node's listen address and aggregation options (spec.md §3 "Node
// configuration"). A plugin instance runs one or more nodes, each with
// its own registry, listening sockets, and flush settings.
type NodeConfig struct {
	Node string `toml:"node"`
	Host string `toml:"host"`
	Port string `toml:"port"`

	DeleteCounters bool `toml:"delete_counters"`
	DeleteTimers   bool `toml:"delete_timers"`
	DeleteGauges   bool `toml:"delete_gauges"`
	DeleteSets     bool `toml:"delete_sets"`

	TimerLower       bool      `toml:"timer_lower"`
	TimerUpper       bool      `toml:"timer_upper"`
	TimerSum         bool      `toml:"timer_sum"`
	TimerCount       bool      `toml:"timer_count"`
	TimerPercentiles []float64 `toml:"timer_percentile"`

	LeaveMetricsNameASIS bool `toml:"leave_metrics_name_asis"`

	GlobalPrefix  string `toml:"global_prefix"`
	CounterPrefix string `toml:"counter_prefix"`
	TimerPrefix   string `toml:"timer_prefix"`
	GaugePrefix   string `toml:"gauge_prefix"`
	SetPrefix     string `toml:"set_prefix"`
	GlobalPostfix string `toml:"global_postfix"`
}

// ToReceiverConfig converts the TOML-decoded table into the plain
// Config internal/receiver works with, keeping the toml struct tags out
// of that package entirely.
func (nc *NodeConfig) ToReceiverConfig() receiver.Config {
	return receiver.Config{
		NodeName:             nc.Node,
		Host:                 nc.Host,
		Port:                 nc.Port,
		DeleteCounters:       nc.DeleteCounters,
		DeleteTimers:         nc.DeleteTimers,
		DeleteGauges:         nc.DeleteGauges,
		DeleteSets:           nc.DeleteSets,
		TimerLower:           nc.TimerLower,
		TimerUpper:           nc.TimerUpper,
		TimerSum:             nc.TimerSum,
		TimerCount:           nc.TimerCount,
		TimerPercentiles:     nc.TimerPercentiles,
		LeaveMetricsNameASIS: nc.LeaveMetricsNameASIS,
		GlobalPrefix:         nc.GlobalPrefix,
		CounterPrefix:        nc.CounterPrefix,
		TimerPrefix:          nc.TimerPrefix,
		GaugePrefix:          nc.GaugePrefix,
		SetPrefix:            nc.SetPrefix,
		GlobalPostfix:        nc.GlobalPostfix,
	}.WithDefaults()
}
