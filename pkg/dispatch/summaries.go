package dispatch

import (
	"context"
	"maps"
	"sync"
)

// SummarySet collects summaries that arrive after a dispatch returned. An id
// without a summary is pending, not failed.
type SummarySet struct {
	byID map[int]string
	done chan struct{}
	once sync.Once
	mu   sync.RWMutex
}

func newSummarySet() *SummarySet {
	return &SummarySet{
		byID: make(map[int]string),
		done: make(chan struct{}),
	}
}

// Get returns the summary for a result id.
func (s *SummarySet) Get(id int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	return v, ok
}

// All returns a copy of every summary received so far.
func (s *SummarySet) All() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.byID)
}

// Done is closed once no more summaries will arrive.
func (s *SummarySet) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the set is complete or ctx ends.
func (s *SummarySet) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attach keeps only summaries for ids in want.
func (s *SummarySet) attach(got map[int]string, want map[int]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, summary := range got {
		if _, ok := want[id]; ok {
			s.byID[id] = summary
		}
	}
}

func (s *SummarySet) finish() {
	s.once.Do(func() { close(s.done) })
}
