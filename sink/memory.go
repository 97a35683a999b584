package sink

import (
	"context"
	"sync"

	"github.com/perfwatch/fsload/types"
)

// MemorySink collects results in memory. Used by tests and useful as a
// scratch sink when wiring new workload types.
type MemorySink struct {
	mu      sync.Mutex
	results []*types.Result
	nextID  int64
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(ctx context.Context, result *types.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	result.ID = s.nextID
	s.results = append(s.results, result)
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Results returns the recorded results in write order.
func (s *MemorySink) Results() []*types.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Result, len(s.results))
	copy(out, s.results)
	return out
}
