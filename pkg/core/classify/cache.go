package classify

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"focusrecon/pkg/models"
)

// ==================== CACHING ====================

// CachedClassifier memoizes classifications by (side, lowercased name).
// The same few hundred line-item names recur across thousands of filings,
// so the hit rate is high and LLM spend drops accordingly.
type CachedClassifier struct {
	inner Classifier
	cache *gocache.Cache
}

// NewCachedClassifier wraps a classifier with an in-memory cache.
func NewCachedClassifier(inner Classifier, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{
		inner: inner,
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

func cacheKey(side models.Side, name string) string {
	return string(side) + "|" + strings.ToLower(strings.TrimSpace(name))
}

func (c *CachedClassifier) Classify(ctx context.Context, side models.Side, name string) (Classification, error) {
	key := cacheKey(side, name)
	if val, found := c.cache.Get(key); found {
		return val.(Classification), nil
	}

	cl, err := c.inner.Classify(ctx, side, name)
	if err != nil {
		return Classification{}, err
	}
	c.cache.Set(key, cl, gocache.DefaultExpiration)
	return cl, nil
}

// ==================== RATE LIMITING ====================

// RateLimitedClassifier throttles calls to an upstream API classifier.
type RateLimitedClassifier struct {
	inner   Classifier
	limiter *rate.Limiter
}

// NewRateLimitedClassifier caps the classification rate at requestsPerSecond.
func NewRateLimitedClassifier(inner Classifier, requestsPerSecond float64) *RateLimitedClassifier {
	return &RateLimitedClassifier{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (r *RateLimitedClassifier) Classify(ctx context.Context, side models.Side, name string) (Classification, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Classification{}, err
	}
	return r.inner.Classify(ctx, side, name)
}
