package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nostr-query/internal/metrics"
	"nostr-query/internal/relay"
	"nostr-query/internal/types"
	"nostr-query/internal/util"
)

const (
	DefaultPollInterval = 30 * time.Second
	defaultPollLimit    = 20
)

// PollNotifyFunc receives the count of newly observed events and the
// advanced watermark after each poll cycle that found something.
type PollNotifyFunc func(newCount int, watermark int64)

// PollerConfig describes one background watermark poll.
type PollerConfig struct {
	Relays    []string
	Authors   []string
	Kinds     []int         // default: kind 1 notes
	Interval  time.Duration // default 30s
	Limit     int           // default 20
	Watermark int64         // latest known created_at at start
	Notify    PollNotifyFunc
}

// Poller periodically re-queries with since=watermark to detect records
// that arrived after the initial page load, independent of the paginator.
// Start is idempotent; Stop guarantees no further fan-out is issued.
type Poller struct {
	engine *Engine
	parent context.Context
	seen   *SeenSet
	cfg    PollerConfig

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	watermark int64
}

func newPoller(e *Engine, parent context.Context, seen *SeenSet, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultPollLimit
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []int{types.KindNote}
	}
	return &Poller{
		engine:    e,
		parent:    parent,
		seen:      seen,
		cfg:       cfg,
		watermark: cfg.Watermark,
	}
}

// Start launches the poll loop. Calling it again while running is a
// no-op: one active interval per poller.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(p.parent)
	p.running = true
	p.cancel = cancel
	go p.run(ctx)
	slog.Debug("poller started",
		"authors", len(p.cfg.Authors), "interval", p.cfg.Interval, "watermark", p.watermark)
}

// Stop cancels the loop. After Stop returns, any in-flight fan-out sees a
// cancelled context and no new cycle can begin.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cancel()
	slog.Debug("poller stopped", "watermark", p.watermark)
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Watermark returns the latest known created_at boundary.
func (p *Poller) Watermark() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one since-watermark fan-out. New means "not in the session
// seen-set"; the watermark advances to the max observed created_at even
// for events already seen, so the next cycle narrows regardless.
func (p *Poller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	metrics.PollCycles.Add(1)

	since := p.Watermark()
	filter := types.Filter{
		Authors: p.cfg.Authors,
		Kinds:   p.cfg.Kinds,
		Since:   &since,
		Limit:   p.cfg.Limit,
	}

	fresh := 0
	maxSeen := since
	var mu sync.Mutex
	_, err := p.engine.query(ctx, p.cfg.Relays, filter, relay.WaitAll, func(evt types.Event) bool {
		mu.Lock()
		if evt.CreatedAt > maxSeen {
			maxSeen = evt.CreatedAt
		}
		mu.Unlock()
		if !p.seen.Add(evt.ID) {
			return false
		}
		mu.Lock()
		fresh++
		mu.Unlock()
		return true
	})
	if err != nil {
		slog.Debug("poll cycle failed", "error", err)
		return
	}

	p.mu.Lock()
	if maxSeen > p.watermark {
		p.watermark = maxSeen
	}
	watermark := p.watermark
	p.mu.Unlock()

	if fresh > 0 {
		slog.Debug("poll found new events", "count", fresh, "watermark", watermark)
		if p.cfg.Notify != nil {
			p.cfg.Notify(fresh, watermark)
		}
	}
}

// pollerRegistry enforces one active poller per author set within a page
// session.
type pollerRegistry struct {
	mu      sync.Mutex
	pollers map[string]*Poller
}

func newPollerRegistry() *pollerRegistry {
	return &pollerRegistry{pollers: make(map[string]*Poller)}
}

func authorsKey(authors []string) string {
	return strings.Join(util.SortedCopy(authors), ",")
}

func (r *pollerRegistry) getOrCreate(key string, build func() *Poller) *Poller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pollers[key]; ok {
		return p
	}
	p := build()
	r.pollers[key] = p
	return p
}

func (r *pollerRegistry) stopAll() {
	r.mu.Lock()
	pollers := make([]*Poller, 0, len(r.pollers))
	for _, p := range r.pollers {
		pollers = append(pollers, p)
	}
	r.mu.Unlock()
	for _, p := range pollers {
		p.Stop()
	}
}

// NewPoller returns the session's poller for the given author set,
// creating it on first use. Repeated calls with the same author set get
// the same poller, so starting twice cannot double the interval.
func (s *PageSession) NewPoller(cfg PollerConfig) *Poller {
	key := authorsKey(cfg.Authors)
	return s.pollers.getOrCreate(key, func() *Poller {
		return newPoller(s.engine, s.ctx, s.seen, cfg)
	})
}
