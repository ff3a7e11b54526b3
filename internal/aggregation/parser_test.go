package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineCounter(t *testing.T) {
	u, err := ParseLine("requests:1|c")
	require.NoError(t, err)
	assert.Equal(t, Counter, u.Type)
	assert.Equal(t, "requests", u.Name)
	assert.Equal(t, float64(1), u.Value)
}

func TestParseLineCounterSampleRate(t *testing.T) {
	u, err := ParseLine("requests:1|c|@0.1")
	require.NoError(t, err)
	assert.Equal(t, float64(10), u.Value)
}

func TestParseLineTimer(t *testing.T) {
	u, err := ParseLine("req.latency:250|ms")
	require.NoError(t, err)
	assert.Equal(t, Timer, u.Type)
	assert.Equal(t, 250*time.Millisecond, u.Duration)
}

func TestParseLineGaugeAbsolute(t *testing.T) {
	u, err := ParseLine("queue.depth:42|g")
	require.NoError(t, err)
	assert.Equal(t, Gauge, u.Type)
	assert.False(t, u.Additive)
	assert.Equal(t, float64(42), u.Value)
}

func TestParseLineGaugeRelative(t *testing.T) {
	u, err := ParseLine("queue.depth:-5|g")
	require.NoError(t, err)
	assert.True(t, u.Additive)
	assert.Equal(t, float64(-5), u.Value)
}

func TestParseLineSet(t *testing.T) {
	u, err := ParseLine("uniques:alice|s")
	require.NoError(t, err)
	assert.Equal(t, Set, u.Type)
	assert.Equal(t, "alice", u.Member)
}

func TestParseLineNameWithColon(t *testing.T) {
	// The rightmost ':' before the first '|' splits name from value, so
	// colons elsewhere in the name are preserved (spec.md §9).
	u, err := ParseLine("host:my-service:requests:1|c")
	require.NoError(t, err)
	assert.Equal(t, "host:my-service:requests", u.Name)
	assert.Equal(t, float64(1), u.Value)
}

func TestParseLineMalformed(t *testing.T) {
	cases := []string{
		"",
		"noPipeOrColon",
		"name|c",
		":1|c",
		"name:|c",
		"name:1|x",
		"name:1|g|@0.5",
		"name:1|s|@0.5",
	}
	for _, line := range cases {
		_, err := ParseLine(line)
		assert.ErrorIs(t, err, ErrMalformedLine, "line=%q", line)
	}
}

func TestParseLineInvalidSampleRate(t *testing.T) {
	cases := []string{
		"requests:1|c|@0",
		"requests:1|c|@1.5",
		"requests:1|c|@abc",
	}
	for _, line := range cases {
		_, err := ParseLine(line)
		assert.Error(t, err, "line=%q", line)
	}
}
