// Package statsd registers the StatsD ingestion plugin: one or more
// independent nodes, each binding its own UDP sockets, aggregating
// counters/timers/gauges/sets in its own registry, and flushing derived
// series into the agent's accumulator once per Gather call.
package statsd

import (
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/influxdata/telegraf"
	"github.com/influxdata/telegraf/plugins/inputs"

	"github.com/ingestd/statsd-node/internal/dispatch"
	"github.com/ingestd/statsd-node/internal/flush"
	"github.com/ingestd/statsd-node/internal/hostinfo"
	"github.com/ingestd/statsd-node/internal/logging"
	"github.com/ingestd/statsd-node/internal/receiver"
	"github.com/ingestd/statsd-node/internal/selfstats"
)

//go:embed sample.conf
var sampleConfig string

// runningNode pairs one configured node with its started receiver and
// its self-instrumentation.
type runningNode struct {
	cfg   *NodeConfig
	node  *receiver.Node
	stats *selfstats.Stats
}

// Statsd is the plugin instance: one or more nodes, each independent.
type Statsd struct {
	Nodes []*NodeConfig `toml:"node"`

	Log telegraf.Logger `toml:"-"`

	hostname hostinfo.Provider
	runID    uuid.UUID
	nodes    []*runningNode
}

func (*Statsd) SampleConfig() string {
	return sampleConfig
}

// Init applies process-wide defaults: a single default node when none is
// configured, a run identifier for log correlation across restarts, and
// the OS-backed hostname provider.
func (s *Statsd) Init() error {
	if s.hostname == nil {
		s.hostname = hostinfo.OSProvider{}
	}
	s.runID = uuid.New()

	if len(s.Nodes) == 0 {
		s.Nodes = []*NodeConfig{{}}
	}
	for _, nc := range s.Nodes {
		if nc.Node == "" {
			nc.Node = "default"
		}
	}
	return nil
}

// Start binds every configured node's listening sockets and spawns its
// receive goroutines. A node that fails to bind is logged and excluded;
// Start only fails outright if every node fails.
func (s *Statsd) Start(_ telegraf.Accumulator) error {
	var errs *multierror.Error

	for _, nc := range s.Nodes {
		cfg := nc.ToReceiverConfig()
		log := logging.New(logrus.Fields{
			"plugin": "statsd",
			"node":   cfg.NodeName,
			"run_id": s.runID.String(),
		})
		stats := selfstats.New(cfg.NodeName)

		node := receiver.NewNode(cfg, log, stats)
		if err := node.Start(); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "node %q", cfg.NodeName))
			s.Log.Errorf("statsd: node %q failed to start: %v", cfg.NodeName, err)
			continue
		}

		s.nodes = append(s.nodes, &runningNode{cfg: nc, node: node, stats: stats})
		s.Log.Infof("statsd: node %q listening on %s:%s", cfg.NodeName, cfg.Host, cfg.Port)
	}

	if len(s.nodes) == 0 {
		return errors.Wrap(errs.ErrorOrNil(), "statsd: no node started")
	}
	return nil
}

// Gather flushes every running node's registry through acc, sharing one
// timestamp across the whole call (spec.md §9).
func (s *Statsd) Gather(acc telegraf.Accumulator) error {
	now := time.Now()
	host := s.hostname.Hostname()
	sink := dispatch.AccumulatorSink{Acc: acc}

	var errs *multierror.Error
	for _, rn := range s.nodes {
		if err := flush.Run(now, rn.node.Registry, rn.node.Config, host, sink); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "node %q", rn.cfg.Node))
		}
	}
	return errs.ErrorOrNil()
}

// Stop joins every node's receive goroutines.
func (s *Statsd) Stop() {
	for _, rn := range s.nodes {
		rn.node.Stop()
	}
}

func init() {
	inputs.Add("statsd", func() telegraf.Input {
		return &Statsd{}
	})
}
