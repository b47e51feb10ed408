package graphcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/recera/graphchart/pkg/render"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis store
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TTL is the lifetime of each entry (0 means no expiry)
	TTL time.Duration

	// Prefix is prepended to every key
	Prefix string

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration
}

// Redis stores responses in Redis so several server instances share them
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string

	mu    sync.Mutex
	stats Stats
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.Prefix == "" {
		opts.Prefix = "graphchart:"
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, ttl: opts.TTL, prefix: opts.Prefix}, nil
}

// Get retrieves a cached graph
func (r *Redis) Get(ctx context.Context, key string) (*render.GraphData, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.record(func(s *Stats) { s.Misses++ })
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var graph render.GraphData
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached graph: %w", err)
	}
	r.record(func(s *Stats) { s.Hits++ })
	return &graph, true, nil
}

// Put stores a graph with the configured TTL
func (r *Redis) Put(ctx context.Context, key string, data *render.GraphData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, encoded, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Clear removes every key under the prefix
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	r.mu.Lock()
	r.stats = Stats{}
	r.mu.Unlock()
	return nil
}

// Stats returns the counters seen by this process. EntryCount is not
// tracked for Redis.
func (r *Redis) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) record(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}
