package appnigma

import (
	"sync"
	"time"
)

// CredentialsCache is an optional, caller-owned cache of resolved
// credentials keyed by (connectionID, integrationID). The core never
// consults it: each ResolveCredentials call is authoritative, and any
// caching is advisory behavior the caller opts into and scopes explicitly.
//
// Entries expire at the credential's own ExpiresAt minus a safety margin;
// Get reports a miss for expired entries.
type CredentialsCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*ConnectionCredentials
	margin  time.Duration
	now     func() time.Time
}

type cacheKey struct {
	connectionID  string
	integrationID string
}

// NewCredentialsCache creates a cache that treats entries as expired margin
// ahead of their actual ExpiresAt.
func NewCredentialsCache(margin time.Duration) *CredentialsCache {
	if margin < 0 {
		margin = 0
	}
	return &CredentialsCache{
		entries: make(map[cacheKey]*ConnectionCredentials),
		margin:  margin,
		now:     time.Now,
	}
}

// Get returns the cached credentials for the key, or a miss when absent or
// expired.
func (c *CredentialsCache) Get(connectionID, integrationID string) (*ConnectionCredentials, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	creds, ok := c.entries[cacheKey{connectionID, integrationID}]
	if !ok {
		return nil, false
	}
	if !c.now().Add(c.margin).Before(creds.ExpiresAt) {
		return nil, false
	}
	return creds, true
}

// Put stores credentials for the key, replacing any previous entry.
func (c *CredentialsCache) Put(connectionID, integrationID string, creds *ConnectionCredentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{connectionID, integrationID}] = creds
}

// Invalidate removes the entry for the key, if any.
func (c *CredentialsCache) Invalidate(connectionID, integrationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{connectionID, integrationID})
}
