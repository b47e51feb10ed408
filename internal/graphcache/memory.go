package graphcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/recera/graphchart/pkg/render"
)

// entry is a single cached response
type entry struct {
	data        []byte
	created     time.Time
	lastAccess  time.Time
	accessCount int
}

// Memory is an in-process store bounded by entry count
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	maxAge     time.Duration
	strategy   EvictionStrategy
	stats      Stats
	now        func() time.Time
	stopCh     chan struct{}
	closeOnce  sync.Once
}

// NewMemory creates an in-memory store. Zero MaxEntries means unbounded and
// zero MaxAge means entries never expire.
func NewMemory(config Config) *Memory {
	return newMemory(config, time.Now)
}

func newMemory(config Config, now func() time.Time) *Memory {
	m := &Memory{
		entries:    make(map[string]*entry),
		maxEntries: config.MaxEntries,
		maxAge:     config.MaxAge,
		strategy:   config.Strategy,
		now:        now,
		stopCh:     make(chan struct{}),
	}
	if m.maxAge > 0 {
		go m.cleanup()
	}
	return m
}

// Get retrieves a cached graph
func (m *Memory) Get(ctx context.Context, key string) (*render.GraphData, bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && m.isExpired(e) {
		delete(m.entries, key)
		m.stats.EntryCount = len(m.entries)
		ok = false
	}
	if !ok {
		m.stats.Misses++
		m.mu.Unlock()
		return nil, false, nil
	}
	e.lastAccess = m.now()
	e.accessCount++
	m.stats.Hits++
	data := e.data
	m.mu.Unlock()

	var graph render.GraphData
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached graph: %w", err)
	}
	return &graph, true, nil
}

// Put stores a graph, evicting entries if the store is full
func (m *Memory) Put(ctx context.Context, key string, data *render.GraphData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok {
		e.data = encoded
		e.created = now
		e.lastAccess = now
		return nil
	}

	m.ensureSpace()
	m.entries[key] = &entry{
		data:       encoded,
		created:    now,
		lastAccess: now,
	}
	m.stats.EntryCount = len(m.entries)
	return nil
}

// Delete removes an entry
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.stats.EntryCount = len(m.entries)
	return nil
}

// Clear removes all entries and resets the counters
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
	m.stats = Stats{}
	return nil
}

// Stats returns cache statistics
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Close stops the cleanup goroutine
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stopCh) })
	return nil
}

func (m *Memory) isExpired(e *entry) bool {
	if m.maxAge <= 0 {
		return false
	}
	return m.now().Sub(e.created) > m.maxAge
}

// ensureSpace makes room for one more entry. Caller holds m.mu.
func (m *Memory) ensureSpace() {
	if m.maxEntries <= 0 {
		return
	}

	for len(m.entries) >= m.maxEntries {
		var evictKey string
		var evictEntry *entry

		for key, e := range m.entries {
			if evictEntry == nil || m.before(e, evictEntry) {
				evictKey = key
				evictEntry = e
			}
		}
		if evictEntry == nil {
			break
		}

		delete(m.entries, evictKey)
		m.stats.Evictions++
	}
}

// before reports whether a should be evicted ahead of b
func (m *Memory) before(a, b *entry) bool {
	switch m.strategy {
	case LFU:
		if a.accessCount != b.accessCount {
			return a.accessCount < b.accessCount
		}
		return a.lastAccess.Before(b.lastAccess)
	case FIFO:
		return a.created.Before(b.created)
	default:
		return a.lastAccess.Before(b.lastAccess)
	}
}

func (m *Memory) cleanup() {
	interval := m.maxAge
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if m.isExpired(e) {
					delete(m.entries, key)
				}
			}
			m.stats.EntryCount = len(m.entries)
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}
