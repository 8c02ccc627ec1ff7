package categorizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"folio/internal/models"
)

// CachingCategorizer remembers successful results for identical requests.
// Failures are never cached.
type CachingCategorizer struct {
	next ProjectCategorizer
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedResult
}

type cachedResult struct {
	categories []models.Category
	expires    time.Time
}

// NewCachingCategorizer wraps next with a result cache of the given ttl.
func NewCachingCategorizer(next ProjectCategorizer, ttl time.Duration) *CachingCategorizer {
	return &CachingCategorizer{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedResult),
	}
}

func (c *CachingCategorizer) Categorize(ctx context.Context, req CategorizationRequest) (CategorizationResult, error) {
	key, keyErr := requestKey(req)
	if keyErr == nil {
		if cats, ok := c.lookup(key); ok {
			return CategorizationResult{Categories: cats}, nil
		}
	}

	res, err := c.next.Categorize(ctx, req)
	if err != nil || keyErr != nil {
		return res, err
	}

	c.mu.Lock()
	c.entries[key] = cachedResult{
		categories: append([]models.Category(nil), res.Categories...),
		expires:    c.now().Add(c.ttl),
	}
	c.mu.Unlock()
	return res, nil
}

// Len reports the number of live cache entries.
func (c *CachingCategorizer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return len(c.entries)
}

func (c *CachingCategorizer) lookup(key string) ([]models.Category, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hit, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(hit.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]models.Category(nil), hit.categories...), true
}

func (c *CachingCategorizer) pruneLocked() {
	now := c.now()
	for k, v := range c.entries {
		if !now.Before(v.expires) {
			delete(c.entries, k)
		}
	}
}

func requestKey(req CategorizationRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
