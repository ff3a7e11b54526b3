package dispatch

import "sync"

// RecordingSink collects dispatched records in memory. It backs the
// standalone runner's "dry run" mode and the scenario tests in
// plugins/inputs/statsd, the way a fake Accumulator would.
type RecordingSink struct {
	mu      sync.Mutex
	records []Record
}

func (s *RecordingSink) Dispatch(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

// Records returns a snapshot of every record dispatched so far.
func (s *RecordingSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Reset clears the recorded history.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
