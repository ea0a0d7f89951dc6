// Package cache holds the Redis-backed read-path caches for similarity and
// autocomplete responses.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

const (
	surfaceSimilar      = "similar"
	surfaceAutocomplete = "autocomplete"

	defaultSimilarTTL      = 5 * time.Minute
	defaultAutocompleteTTL = 2 * time.Minute
)

// Cache fronts the expensive read paths. Every method degrades to a miss on
// Redis failure; the cache is never allowed to fail a request.
type Cache struct {
	client          *redis.Client
	logger          ectologger.Logger
	similarTTL      time.Duration
	autocompleteTTL time.Duration
}

// New creates the read-path cache with production TTLs.
func New(client *redis.Client, logger ectologger.Logger) *Cache {
	return &Cache{
		client:          client,
		logger:          logger,
		similarTTL:      defaultSimilarTTL,
		autocompleteTTL: defaultAutocompleteTTL,
	}
}

// GetSimilar returns a cached similarity result, or nil on miss.
func (c *Cache) GetSimilar(ctx context.Context, tenantID, targetKey string, opts similarity.Options) *similarity.Result {
	key := c.similarKey(tenantID, targetKey, opts)

	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			c.logger.WithContext(ctx).WithError(err).Warn("Similar cache read failed")
		}
		metrics.CacheHitsTotal.WithLabelValues(surfaceSimilar, "miss").Inc()
		return nil
	}

	var result similarity.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Similar cache entry corrupt")
		metrics.CacheHitsTotal.WithLabelValues(surfaceSimilar, "miss").Inc()
		return nil
	}

	metrics.CacheHitsTotal.WithLabelValues(surfaceSimilar, "hit").Inc()
	return &result
}

// SetSimilar stores a similarity result. Not-found outcomes are never cached.
func (c *Cache) SetSimilar(ctx context.Context, tenantID, targetKey string, opts similarity.Options, result *similarity.Result) {
	if result == nil || result.Target == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to encode similar cache entry")
		return
	}
	if err := c.client.Set(ctx, c.similarKey(tenantID, targetKey, opts), raw, c.similarTTL); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Similar cache write failed")
	}
}

// GetAutocomplete returns cached suggestions, or nil on miss.
func (c *Cache) GetAutocomplete(ctx context.Context, tenantID, text string, limit int) []search.Suggestion {
	key := c.autocompleteKey(tenantID, text, limit)

	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			c.logger.WithContext(ctx).WithError(err).Warn("Autocomplete cache read failed")
		}
		metrics.CacheHitsTotal.WithLabelValues(surfaceAutocomplete, "miss").Inc()
		return nil
	}

	var suggestions []search.Suggestion
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Autocomplete cache entry corrupt")
		metrics.CacheHitsTotal.WithLabelValues(surfaceAutocomplete, "miss").Inc()
		return nil
	}

	metrics.CacheHitsTotal.WithLabelValues(surfaceAutocomplete, "hit").Inc()
	return suggestions
}

// SetAutocomplete stores an autocomplete response.
func (c *Cache) SetAutocomplete(ctx context.Context, tenantID, text string, limit int, suggestions []search.Suggestion) {
	raw, err := json.Marshal(suggestions)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to encode autocomplete cache entry")
		return
	}
	if err := c.client.Set(ctx, c.autocompleteKey(tenantID, text, limit), raw, c.autocompleteTTL); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Autocomplete cache write failed")
	}
}

// InvalidateTenant drops every cached read for the tenant. Called after any
// property write so stale rankings never outlive a mutation.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) {
	for _, pattern := range []string{
		fmt.Sprintf("fern:similar:%s:*", tenantID),
		fmt.Sprintf("fern:autocomplete:%s:*", tenantID),
	} {
		if err := c.client.DelPattern(ctx, pattern); err != nil {
			c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"tenant_id": tenantID,
			}).Warn("Cache invalidation failed")
		}
	}
}

func (c *Cache) similarKey(tenantID, targetKey string, opts similarity.Options) string {
	return fmt.Sprintf("fern:similar:%s:%s:%s", tenantID, targetKey, hashOptions(opts))
}

func (c *Cache) autocompleteKey(tenantID, text string, limit int) string {
	return fmt.Sprintf("fern:autocomplete:%s:%s:%d", tenantID, hashText(text), limit)
}

func hashOptions(opts similarity.Options) string {
	raw, _ := json.Marshal(opts)
	return hashText(string(raw))
}

func hashText(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
