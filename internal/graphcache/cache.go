// Package graphcache caches backend graph responses. Identical requests
// (same effective configuration, filters and scale ratio) are served from
// the cache instead of calling the backend again.
package graphcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/recera/graphchart/pkg/backend"
	"github.com/recera/graphchart/pkg/render"
)

// Store holds graph responses by key
type Store interface {
	// Get returns the cached graph and whether it was found
	Get(ctx context.Context, key string) (*render.GraphData, bool, error)
	// Put stores a graph under key
	Put(ctx context.Context, key string, data *render.GraphData) error
	// Delete removes key
	Delete(ctx context.Context, key string) error
	// Clear removes every entry
	Clear(ctx context.Context) error
	// Stats returns a snapshot of the counters
	Stats() Stats
	// Close releases resources
	Close() error
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines how entries are removed when the cache is full
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

func (s EvictionStrategy) String() string {
	switch s {
	case LFU:
		return "lfu"
	case FIFO:
		return "fifo"
	default:
		return "lru"
	}
}

// ParseStrategy parses "lru", "lfu" or "fifo". Empty means LRU.
func ParseStrategy(s string) (EvictionStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lru":
		return LRU, nil
	case "lfu":
		return LFU, nil
	case "fifo":
		return FIFO, nil
	}
	return LRU, fmt.Errorf("unknown eviction strategy %q", s)
}

// Config holds cache configuration
type Config struct {
	Kind       string           // "none", "memory" or "redis"
	MaxEntries int              // Maximum entries for the memory store (default: 128)
	MaxAge     time.Duration    // Entry lifetime (default: 10 minutes)
	Strategy   EvictionStrategy // Eviction strategy for the memory store (default: LRU)
	RedisURL   string           // Redis connection string for the redis store
	Prefix     string           // Redis key prefix (default: "graphchart:")
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		Kind:       "memory",
		MaxEntries: 128,
		MaxAge:     10 * time.Minute,
		Strategy:   LRU,
		Prefix:     "graphchart:",
	}
}

// Open creates the store named by config.Kind. It returns nil for "none".
func Open(config Config) (Store, error) {
	switch strings.ToLower(config.Kind) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(config), nil
	case "redis":
		store, err := NewRedis(RedisOptions{
			URL:    config.RedisURL,
			TTL:    config.MaxAge,
			Prefix: config.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown cache kind %q", config.Kind)
}

// Key generates a cache key from a backend request
func Key(req backend.Request) (string, error) {
	body, err := req.Encode()
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(body)
	return hex.EncodeToString(h[:]), nil
}
