package metrics

import (
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
)

// Engine counters. Plain atomics, exposed in Prometheus text format.
var (
	FanoutsTotal    atomic.Int64
	SessionsFailed  atomic.Int64
	EventsAccepted  atomic.Int64
	EventsDuplicate atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
	PollCycles      atomic.Int64
	RetriesTotal    atomic.Int64
)

// WritePrometheus dumps all counters in Prometheus exposition format.
func WritePrometheus(w io.Writer) {
	counter(w, "nostrq_fanouts_total", "Total fan-out queries issued", FanoutsTotal.Load())
	counter(w, "nostrq_sessions_failed_total", "Endpoint sessions that failed or timed out", SessionsFailed.Load())
	counter(w, "nostrq_events_accepted_total", "Events accepted after deduplication", EventsAccepted.Load())
	counter(w, "nostrq_events_duplicate_total", "Events discarded as duplicates", EventsDuplicate.Load())
	counter(w, "nostrq_cache_hits_total", "Profile/reaction cache hits", CacheHits.Load())
	counter(w, "nostrq_cache_misses_total", "Profile/reaction cache misses", CacheMisses.Load())
	counter(w, "nostrq_poll_cycles_total", "Watermark poll cycles executed", PollCycles.Load())
	counter(w, "nostrq_retries_total", "Retried by-id lookups", RetriesTotal.Load())

	hits := CacheHits.Load()
	misses := CacheMisses.Load()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	fmt.Fprintf(w, "# HELP nostrq_cache_hit_ratio Cache hit ratio (0-1)\n")
	fmt.Fprintf(w, "# TYPE nostrq_cache_hit_ratio gauge\n")
	fmt.Fprintf(w, "nostrq_cache_hit_ratio %.4f\n\n", ratio)

	fmt.Fprintf(w, "# HELP go_goroutines Number of active goroutines\n")
	fmt.Fprintf(w, "# TYPE go_goroutines gauge\n")
	fmt.Fprintf(w, "go_goroutines %d\n", runtime.NumGoroutine())
}

func counter(w io.Writer, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
