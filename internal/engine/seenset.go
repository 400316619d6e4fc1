package engine

import "sync"

// SeenSet is an append-only set of event IDs scoped to one logical
// browsing session. Mutated from concurrent completion callbacks, so the
// check-then-insert is a single atomic LoadOrStore — no event ID can be
// claimed twice even under interleaving.
type SeenSet struct {
	ids sync.Map
	mu  sync.Mutex
	n   int64
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{}
}

// Add registers the id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	_, loaded := s.ids.LoadOrStore(id, struct{}{})
	if !loaded {
		s.mu.Lock()
		s.n++
		s.mu.Unlock()
	}
	return !loaded
}

// Has reports whether the id was already registered.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids.Load(id)
	return ok
}

// Len returns the number of registered ids.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.n)
}

// Reset discards all ids. Only called on explicit page-context changes;
// the set never shrinks otherwise.
func (s *SeenSet) Reset() {
	s.ids.Range(func(k, _ any) bool {
		s.ids.Delete(k)
		return true
	})
	s.mu.Lock()
	s.n = 0
	s.mu.Unlock()
}
