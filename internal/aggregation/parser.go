package aggregation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrMalformedLine is returned for any line that doesn't match the
// StatsD grammar in spec.md §4.C. Callers log and discard; a malformed
// line never aborts the rest of the datagram.
var ErrMalformedLine = errors.New("statsd: malformed line")

// Update is the typed result of parsing one StatsD line: the (type,
// name) to update and the value to apply. Applying an Update to a
// Registry is the caller's job (see ApplyTo) — the parser only decodes.
type Update struct {
	Type     Type
	Name     string
	Value    float64       // Counter delta, Gauge value (absolute or relative)
	Additive bool          // Gauge only: value is a signed delta, not absolute
	Duration time.Duration // Timer only
	Member   string        // Set only
}

// ApplyTo applies the update to registry, matching the per-type
// semantics of spec.md §4.C.
func (u Update) ApplyTo(r *Registry) {
	switch u.Type {
	case Counter:
		r.Add(u.Name, u.Value, Counter)
	case Gauge:
		if u.Additive {
			r.Add(u.Name, u.Value, Gauge)
		} else {
			r.Set(u.Name, u.Value, Gauge)
		}
	case Timer:
		r.TimerAdd(u.Name, u.Duration)
	case Set:
		r.SetAdd(u.Name, u.Member)
	}
}

// ParseLine decodes one StatsD line:
//
//	line  := name ':' value '|' type ( '|' extra )?
//	type  := 'c' | 'ms' | 'g' | 's'
//	extra := '@' sample_rate
//
// name is everything up to the rightmost ':' before the first '|' (this
// permits ':' inside names, see spec.md §9). extra is only valid for 'c'
// and 'ms'.
func ParseLine(line string) (Update, error) {
	pipeIdx := strings.IndexByte(line, '|')
	if pipeIdx < 0 {
		return Update{}, ErrMalformedLine
	}
	head := line[:pipeIdx]
	tail := line[pipeIdx+1:]

	colonIdx := strings.LastIndexByte(head, ':')
	if colonIdx < 0 {
		return Update{}, ErrMalformedLine
	}
	name := head[:colonIdx]
	valueStr := head[colonIdx+1:]
	if name == "" || valueStr == "" {
		return Update{}, ErrMalformedLine
	}

	var typeStr, extraStr string
	hasExtra := false
	if secondPipe := strings.IndexByte(tail, '|'); secondPipe >= 0 {
		typeStr = tail[:secondPipe]
		extraStr = tail[secondPipe+1:]
		hasExtra = true
	} else {
		typeStr = tail
	}

	switch typeStr {
	case "c":
		return parseCounter(name, valueStr, hasExtra, extraStr)
	case "ms":
		return parseTimer(name, valueStr, hasExtra, extraStr)
	case "g":
		if hasExtra {
			return Update{}, ErrMalformedLine
		}
		return parseGauge(name, valueStr)
	case "s":
		if hasExtra {
			return Update{}, ErrMalformedLine
		}
		return Update{Type: Set, Name: name, Member: valueStr}, nil
	default:
		return Update{}, ErrMalformedLine
	}
}

// sampleRate parses and validates the "@rate" extra field, defaulting to
// 1.0 when absent. rate must be finite and lie in (0, 1].
func sampleRate(hasExtra bool, extraStr string) (float64, error) {
	if !hasExtra {
		return 1.0, nil
	}
	if len(extraStr) < 2 || extraStr[0] != '@' {
		return 0, ErrMalformedLine
	}
	rate, err := strconv.ParseFloat(extraStr[1:], 64)
	if err != nil {
		return 0, errors.Wrap(ErrMalformedLine, err.Error())
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 || rate > 1 {
		return 0, ErrMalformedLine
	}
	return rate, nil
}

func parseCounter(name, valueStr string, hasExtra bool, extraStr string) (Update, error) {
	rate, err := sampleRate(hasExtra, extraStr)
	if err != nil {
		return Update{}, err
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Update{}, errors.Wrap(ErrMalformedLine, err.Error())
	}
	return Update{Type: Counter, Name: name, Value: value / rate}, nil
}

func parseTimer(name, valueStr string, hasExtra bool, extraStr string) (Update, error) {
	rate, err := sampleRate(hasExtra, extraStr)
	if err != nil {
		return Update{}, err
	}
	valueMS, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Update{}, errors.Wrap(ErrMalformedLine, err.Error())
	}
	d := msToDuration(valueMS / rate)
	return Update{Type: Timer, Name: name, Duration: d}, nil
}

func parseGauge(name, valueStr string) (Update, error) {
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Update{}, errors.Wrap(ErrMalformedLine, err.Error())
	}
	additive := valueStr[0] == '+' || valueStr[0] == '-'
	return Update{Type: Gauge, Name: name, Value: value, Additive: additive}, nil
}

// msToDuration converts a StatsD timer value (milliseconds) into a
// time.Duration, the fixed-point duration type this package works in
// throughout.
func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// DurationToSeconds converts a duration to double-precision seconds, the
// form the value sink dispatches latency samples in (spec.md §6).
func DurationToSeconds(d time.Duration) float64 {
	return d.Seconds()
}
