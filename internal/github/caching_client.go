package github

import (
	"context"
	"sync"
	"time"

	"EvolutionProfiles/internal/domain"
	"EvolutionProfiles/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// Lookup is the part of Client the cache decorates.
type Lookup interface {
	User(ctx context.Context, username string) (*domain.GitHubUser, error)
}

// CachingClient keeps successful lookups for a fixed TTL. Concurrent misses
// for the same username share one upstream request. Errors are not cached.
type CachingClient struct {
	lookup  Lookup
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	user      domain.GitHubUser
	expiresAt time.Time
}

func NewCachingClient(lookup Lookup, ttl time.Duration, m *metrics.Metrics) *CachingClient {
	return &CachingClient{
		lookup:  lookup,
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachingClient) User(ctx context.Context, username string) (*domain.GitHubUser, error) {
	if user, ok := c.get(username); ok {
		c.metrics.CacheLookup(metrics.CacheHit)
		return user, nil
	}
	c.metrics.CacheLookup(metrics.CacheMiss)

	v, err, _ := c.group.Do(username, func() (any, error) {
		user, err := c.lookup.User(ctx, username)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, domain.ErrIdentityNotFound
		}
		c.set(username, *user)
		return *user, nil
	})
	if err != nil {
		return nil, err
	}

	user := v.(domain.GitHubUser)
	return &user, nil
}

// Invalidate drops a cached identity so the next lookup goes upstream.
func (c *CachingClient) Invalidate(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, username)
}

func (c *CachingClient) get(username string) (*domain.GitHubUser, bool) {
	c.mu.RLock()
	entry, ok := c.entries[username]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[username]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, username)
		}
		c.mu.Unlock()
		return nil, false
	}

	user := entry.user
	return &user, true
}

func (c *CachingClient) set(username string, user domain.GitHubUser) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[username] = cacheEntry{user: user, expiresAt: c.now().Add(c.ttl)}
}
