package cache

import (
	"context"
	"sync"
	"time"

	"nostr-query/internal/types"
)

// Memory is the in-process backend. Entries expire lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	profile *types.ProfileInfo
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) GetProfile(_ context.Context, pubkey string) (*types.ProfileInfo, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[pubkey]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expires) {
		m.mu.Lock()
		delete(m.entries, pubkey)
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.profile, true, nil
}

func (m *Memory) SetProfile(_ context.Context, pubkey string, profile *types.ProfileInfo, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[pubkey] = memoryEntry{profile: profile, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
