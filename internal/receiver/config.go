package receiver

// Config is one node's ingestion configuration (spec.md §3 "Node
// configuration"). It carries no struct tags: decoding config files is
// an ambient concern the plugins/inputs/statsd package owns (see its
// NodeConfig), kept separate so this package has no opinion on the
// config file format.
type Config struct {
	NodeName string
	Host     string
	Port     string

	DeleteCounters bool
	DeleteTimers   bool
	DeleteGauges   bool
	DeleteSets     bool

	TimerLower       bool
	TimerUpper       bool
	TimerSum         bool
	TimerCount       bool
	TimerPercentiles []float64

	LeaveMetricsNameASIS bool

	GlobalPrefix   string
	CounterPrefix  string
	TimerPrefix    string
	GaugePrefix    string
	SetPrefix      string
	GlobalPostfix  string
}

// WithDefaults returns a copy of c with spec.md §3's documented defaults
// applied to any zero-valued field that has one.
func (c Config) WithDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == "" {
		c.Port = "8125"
	}
	if c.NodeName == "" {
		c.NodeName = "default"
	}
	return c
}
