package analysis

import (
	"context"
	"sync"
)

// inflightSet prevents duplicate concurrent pipelines for one fingerprint.
// The leader runs the analysis; followers block until it finishes, then
// re-check the cache. State is transient, nothing survives the request.
type inflightSet struct {
	mu      sync.Mutex
	pending map[string]chan struct{}
}

// acquire returns a release func and whether the caller is the leader for
// this fingerprint. Followers return once the leader released or the context
// ended; their release func is a no-op.
func (s *inflightSet) acquire(ctx context.Context, fp string) (func(), bool) {
	s.mu.Lock()
	if s.pending == nil {
		s.pending = make(map[string]chan struct{})
	}
	if ch, ok := s.pending[fp]; ok {
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
		}
		return func() {}, false
	}
	ch := make(chan struct{})
	s.pending[fp] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.pending, fp)
			s.mu.Unlock()
			close(ch)
		})
	}, true
}
