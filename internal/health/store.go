package health

import (
	"sort"
	"sync"
	"time"
)

// Store tracks per-relay reachability and latency across fan-outs. Purely
// observational: query routing never consults it, operators and the
// metrics endpoint do.
type Store struct {
	mu     sync.RWMutex
	relays map[string]*relayStats
}

type relayStats struct {
	successes    int64
	failures     int64
	totalLatency time.Duration
	lastOK       bool
}

// RelayHealth is a point-in-time view of one relay's track record.
type RelayHealth struct {
	URL           string `json:"url"`
	Healthy       bool   `json:"healthy"`
	Successes     int64  `json:"successes"`
	Failures      int64  `json:"failures"`
	AvgResponseMs int64  `json:"avg_response_ms"`
}

func NewStore() *Store {
	return &Store{relays: make(map[string]*relayStats)}
}

// RecordSuccess notes a session that completed cleanly.
func (s *Store) RecordSuccess(url string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats(url)
	st.successes++
	st.totalLatency += latency
	st.lastOK = true
}

// RecordFailure notes a session that failed or timed out.
func (s *Store) RecordFailure(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats(url)
	st.failures++
	st.lastOK = false
}

func (s *Store) stats(url string) *relayStats {
	st := s.relays[url]
	if st == nil {
		st = &relayStats{}
		s.relays[url] = st
	}
	return st
}

// Snapshot returns per-relay health sorted by URL.
func (s *Store) Snapshot() []RelayHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RelayHealth, 0, len(s.relays))
	for url, st := range s.relays {
		h := RelayHealth{
			URL:       url,
			Healthy:   st.lastOK,
			Successes: st.successes,
			Failures:  st.failures,
		}
		if st.successes > 0 {
			h.AvgResponseMs = (st.totalLatency / time.Duration(st.successes)).Milliseconds()
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Totals returns the healthy/unhealthy split and overall average latency.
func (s *Store) Totals() (healthy, unhealthy int, avgMs int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var successes int64
	var latency time.Duration
	for _, st := range s.relays {
		if st.lastOK {
			healthy++
		} else {
			unhealthy++
		}
		successes += st.successes
		latency += st.totalLatency
	}
	if successes > 0 {
		avgMs = (latency / time.Duration(successes)).Milliseconds()
	}
	return healthy, unhealthy, avgMs
}
