package aggregation

import (
	"sync"
	"time"
)

// Registry is the keyed map of (type, name) -> Metric. A single mutex
// guards the map and every Metric payload reachable through it; updates
// and the flush walk all serialize on this lock (spec.md §4.B, §5). The
// registry owns every key and metric it stores — callers never retain
// aliases across calls.
type Registry struct {
	mu      sync.Mutex
	metrics map[string]*Metric
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]*Metric)}
}

// lookupOrInsert must be called with mu held.
func (r *Registry) lookupOrInsert(t Type, name string) *Metric {
	key := Key(t, name)
	m, ok := r.metrics[key]
	if !ok {
		m = &Metric{Type: t}
		r.metrics[key] = m
	}
	return m
}

// Set assigns an absolute value to a Counter or Gauge, creating it on
// first use.
func (r *Registry) Set(name string, value float64, t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.lookupOrInsert(t, name)
	m.Value = value
	m.Updates++
}

// Add applies a relative delta to a Counter or Gauge, creating it on
// first use.
func (r *Registry) Add(name string, delta float64, t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.lookupOrInsert(t, name)
	m.Value += delta
	m.Updates++
}

// TimerAdd records one latency sample against a Timer, lazily allocating
// its histogram on first use.
func (r *Registry) TimerAdd(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.lookupOrInsert(Timer, name)
	if m.Histogram == nil {
		m.Histogram = NewHistogram()
	}
	m.Histogram.Add(d)
	m.Updates++
}

// SetAdd inserts member into a Set, deduplicating by byte-equality.
// Re-inserting an existing member is a no-op that still counts as an
// update (invariant 3).
func (r *Registry) SetAdd(name, member string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.lookupOrInsert(Set, name)
	if m.Set == nil {
		m.Set = make(map[string]struct{})
	}
	m.Set[member] = struct{}{}
	m.Updates++
}

// Iterate calls f(name, metric) for every entry under the registry lock.
// f returns true to request deletion of that entry; deletions are
// deferred until the walk completes so the map isn't mutated mid-range.
func (r *Registry) Iterate(f func(name string, m *Metric) (del bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var toDelete []string
	for key, m := range r.metrics {
		if f(nameFromKey(key), m) {
			toDelete = append(toDelete, key)
		}
	}
	for _, key := range toDelete {
		delete(r.metrics, key)
	}
}

// Len reports the number of entries currently tracked. Intended for
// tests and diagnostics, not the hot path.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.metrics)
}
