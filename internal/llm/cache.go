package llm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task types used as cache-key namespaces and cost-rate selectors.
const (
	TaskNaming = "naming"
	TaskBrief  = "brief"
)

// DefaultCacheTTL is how long cached responses stay valid.
const DefaultCacheTTL = 7 * 24 * time.Hour

const cachePrefix = "llm_cache"

// CacheMeta records how a cached response was produced.
type CacheMeta struct {
	CostUSD  float64   `json:"cost_usd"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache stores text-generation responses keyed by task type and a hash of the
// prompt content. A cache outage degrades to "always call the LLM": Get
// swallows read failures as misses and Put returns an error the caller logs
// and ignores.
type Cache interface {
	Get(ctx context.Context, content, task string) (string, bool)
	Put(ctx context.Context, content, response, task string, meta CacheMeta) error
}

type cacheEntry struct {
	Response string    `json:"response"`
	Task     string    `json:"task_type"`
	Meta     CacheMeta `json:"metadata"`
}

func cacheKey(content, task string) string {
	sum := md5.Sum([]byte(content))
	return fmt.Sprintf("%s:%s:%s", cachePrefix, task, hex.EncodeToString(sum[:]))
}

// RedisCache is the production cache backend.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to REDIS_URL (or localhost:6379 when unset).
func NewRedisCache(ttl time.Duration) (*RedisCache, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached response for (content, task), treating any read
// failure as a miss.
func (c *RedisCache) Get(ctx context.Context, content, task string) (string, bool) {
	raw, err := c.client.Get(ctx, cacheKey(content, task)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("llm cache read error: %v", err)
		return "", false
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Printf("llm cache decode error: %v", err)
		return "", false
	}
	return entry.Response, true
}

// Put stores the response with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, content, response, task string, meta CacheMeta) error {
	entry := cacheEntry{Response: response, Task: task, Meta: meta}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(content, task), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache is an in-process Cache for tests and cache-less deployments.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	response  string
	expiresAt time.Time
}

// NewMemoryCache builds an in-memory cache with the given TTL
// (DefaultCacheTTL when non-positive).
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

// Get returns the cached response if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, content, task string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(content, task)]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.response, true
}

// Put stores the response with the cache TTL.
func (c *MemoryCache) Put(_ context.Context, content, response, task string, _ CacheMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(content, task)] = memoryEntry{
		response:  response,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}
