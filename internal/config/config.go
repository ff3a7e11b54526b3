// Package config loads the standalone runner's TOML configuration file
// into plugin node tables, independent of a full Telegraf agent. It
// mirrors the decode-a-struct-tree convention the teacher's own agent
// config loader follows, scaled down to what cmd/statsd-node needs.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/ingestd/statsd-node/plugins/inputs/statsd"
)

// File is the root shape of a standalone config file:
//
//	[[node]]
//	  node = "default"
//	  host = "0.0.0.0"
//	  port = "8125"
type File struct {
	Nodes []*statsd.NodeConfig `toml:"node"`
}

// Load decodes path into a File. A missing or empty node list is not an
// error here; the caller decides whether to fall back to a single
// default node.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.Wrapf(err, "config: unable to decode %s", path)
	}
	return &f, nil
}
