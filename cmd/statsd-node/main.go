// Command statsd-node runs the StatsD ingestion plugin standalone,
// outside a full Telegraf agent: useful for trying a config file or
// watching dispatched records during development.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ingestd/statsd-node/internal/config"
	"github.com/ingestd/statsd-node/internal/dispatch"
	"github.com/ingestd/statsd-node/internal/flush"
	"github.com/ingestd/statsd-node/internal/hostinfo"
	"github.com/ingestd/statsd-node/internal/logging"
	"github.com/ingestd/statsd-node/internal/receiver"
	"github.com/ingestd/statsd-node/plugins/inputs/statsd"
)

func main() {
	app := &cli.App{
		Name:  "statsd-node",
		Usage: "run the StatsD ingestion plugin as a standalone process",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a TOML config file with one or more [[node]] tables",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "flush interval",
				Value: 10 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "print",
				Usage: "log every dispatched record instead of discarding it",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

type runningNode struct {
	cfg  receiver.Config
	node *receiver.Node
}

func run(c *cli.Context) error {
	runID := uuid.New()
	log := logrus.WithFields(logrus.Fields{"run_id": runID.String()})

	configs, err := loadReceiverConfigs(c.String("config"))
	if err != nil {
		return err
	}

	var running []*runningNode
	var startErrs *multierror.Error
	for _, cfg := range configs {
		nodeLog := logging.New(logrus.Fields{"node": cfg.NodeName, "run_id": runID.String()})
		node := receiver.NewNode(cfg, nodeLog, nil)
		if err := node.Start(); err != nil {
			startErrs = multierror.Append(startErrs, errors.Wrapf(err, "node %q", cfg.NodeName))
			log.Errorf("node %q failed to start: %v", cfg.NodeName, err)
			continue
		}
		running = append(running, &runningNode{cfg: cfg, node: node})
		log.Infof("node %q listening on %s:%s", cfg.NodeName, cfg.Host, cfg.Port)
	}
	if len(running) == 0 {
		return errors.Wrap(startErrs.ErrorOrNil(), "no node started")
	}

	recording := &dispatch.RecordingSink{}
	var sink dispatch.Sink = recording

	host := hostinfo.OSProvider{}.Hostname()
	interval := c.Duration("interval")
	printRecords := c.Bool("print")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("statsd-node running, flush interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			for _, rn := range running {
				rn.node.Stop()
			}
			return nil
		case now := <-ticker.C:
			var flushErrs *multierror.Error
			for _, rn := range running {
				if err := flush.Run(now, rn.node.Registry, rn.cfg, host, sink); err != nil {
					flushErrs = multierror.Append(flushErrs, errors.Wrapf(err, "node %q", rn.cfg.NodeName))
				}
			}
			if err := flushErrs.ErrorOrNil(); err != nil {
				log.Error(err)
			}
			if printRecords {
				for _, r := range recording.Records() {
					fmt.Printf("%s %s/%s %s=%v\n", r.Time.Format(time.RFC3339), r.Plugin, r.TypeInstance, r.Type, r.Gauge+float64(r.Derive))
				}
			}
			recording.Reset()
		}
	}
}

// loadReceiverConfigs reads path (if non-empty) into one Config per
// configured node, falling back to a single node with defaults applied
// when no config file is given or it declares no nodes.
func loadReceiverConfigs(path string) ([]receiver.Config, error) {
	var nodeConfigs []*statsd.NodeConfig
	if path != "" {
		f, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		nodeConfigs = f.Nodes
	}

	if len(nodeConfigs) == 0 {
		return []receiver.Config{receiver.Config{}.WithDefaults()}, nil
	}

	configs := make([]receiver.Config, 0, len(nodeConfigs))
	for _, nc := range nodeConfigs {
		configs = append(configs, nc.ToReceiverConfig())
	}
	return configs, nil
}
