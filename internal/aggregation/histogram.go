package aggregation

import (
	"math"
	"time"
)

// bucketWidth and numBuckets bound the histogram's memory footprint: one
// fixed-size array of counters, never reallocated, regardless of how many
// samples arrive. Durations at or beyond numBuckets*bucketWidth fall into
// the trailing overflow bucket. This mirrors the design note in spec.md
// §9 ("a bounded-bucket structure is required because timers are
// unbounded sources") and the fixed-bucket shape of a Prometheus
// histogram (github.com/prometheus/client_golang), which is the only
// bucketed-histogram implementation anywhere in the retrieval pack.
const (
	bucketWidth = time.Millisecond
	numBuckets  = 2000
)

// Histogram is a bounded-memory latency accumulator. Add is O(1);
// Percentile is O(numBuckets). Average/Min/Max/Percentile are undefined
// on an empty histogram (Count() == 0) and must not be called — callers
// guard on updates_num > 0, per spec.md §4.A.
type Histogram struct {
	count   uint64
	sum     time.Duration
	min     time.Duration
	max     time.Duration
	buckets [numBuckets + 1]uint64
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{}
}

// Add records one non-negative duration sample in O(1).
func (h *Histogram) Add(d time.Duration) {
	if d < 0 {
		d = 0
	}

	if h.count == 0 {
		h.min = d
		h.max = d
	} else {
		if d < h.min {
			h.min = d
		}
		if d > h.max {
			h.max = d
		}
	}
	h.count++
	h.sum += d

	idx := int(d / bucketWidth)
	if idx > numBuckets {
		idx = numBuckets
	}
	h.buckets[idx]++
}

// Count returns the number of samples recorded since the last Reset.
func (h *Histogram) Count() uint64 { return h.count }

// Min returns the smallest sample recorded since the last Reset.
func (h *Histogram) Min() time.Duration { return h.min }

// Max returns the largest sample recorded since the last Reset.
func (h *Histogram) Max() time.Duration { return h.max }

// Sum returns the sum of every sample recorded since the last Reset.
func (h *Histogram) Sum() time.Duration { return h.sum }

// Average returns Sum/Count.
func (h *Histogram) Average() time.Duration {
	return h.sum / time.Duration(h.count)
}

// Percentile estimates the p-th percentile (0, 100] by walking the
// bucket array until the cumulative count reaches the target rank. The
// result is the upper bound of the bucket the target rank falls in, so
// it is an overestimate bounded by bucketWidth.
func (h *Histogram) Percentile(p float64) time.Duration {
	target := uint64(math.Ceil(p / 100.0 * float64(h.count)))
	if target < 1 {
		target = 1
	}

	var cumulative uint64
	for i, c := range h.buckets {
		cumulative += c
		if cumulative >= target {
			if i == numBuckets {
				return h.max
			}
			return time.Duration(i+1) * bucketWidth
		}
	}
	return h.max
}

// Reset restores the empty state without deallocating the bucket array.
func (h *Histogram) Reset() {
	h.count = 0
	h.sum = 0
	h.min = 0
	h.max = 0
	for i := range h.buckets {
		h.buckets[i] = 0
	}
}
