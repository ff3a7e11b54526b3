package statsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeConfigToReceiverConfigCarriesFieldsAndDefaults(t *testing.T) {
	nc := &NodeConfig{
		Node:             "edge-1",
		TimerPercentiles: []float64{90, 99},
		DeleteCounters:   true,
	}

	cfg := nc.ToReceiverConfig()

	assert.Equal(t, "edge-1", cfg.NodeName)
	assert.Equal(t, "localhost", cfg.Host) // applied by WithDefaults
	assert.Equal(t, "8125", cfg.Port)
	assert.True(t, cfg.DeleteCounters)
	assert.Equal(t, []float64{90, 99}, cfg.TimerPercentiles)
}

func TestStatsdInitDefaultsToOneNode(t *testing.T) {
	s := &Statsd{}
	a := assert.New(t)

	err := s.Init()
	a.NoError(err)
	a.Len(s.Nodes, 1)
	a.Equal("default", s.Nodes[0].Node)
}
