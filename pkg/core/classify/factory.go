package classify

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Config selects and tunes a classifier implementation.
type Config struct {
	Provider       string  // "static", "gemini", or "openai"
	Model          string  // provider model override
	CategoriesPath string  // path to the category map YAML
	RequestsPerSec float64 // API throttle; ignored for static
	CacheTTL       time.Duration
}

// New builds the configured classifier. API-backed providers are wrapped
// with caching and rate limiting; the static provider needs neither.
func New(ctx context.Context, cfg Config) (Classifier, *CategoryMap, error) {
	cm, err := LoadCategoryMap(cfg.CategoriesPath)
	if err != nil {
		return nil, nil, err
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	rps := cfg.RequestsPerSec
	if rps == 0 {
		rps = 5
	}

	switch cfg.Provider {
	case "", "static":
		log.Printf("[Classifier] Using static keyword classifier")
		return NewStaticClassifier(cm), cm, nil

	case "gemini":
		g, err := NewGeminiClassifier(ctx, cfg.Model, cm)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Classifier] Using Gemini classifier (%s)", g.Model)
		return NewCachedClassifier(NewRateLimitedClassifier(g, rps), ttl), cm, nil

	case "openai":
		o, err := NewOpenAIClassifier(cfg.Model, cm)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Classifier] Using OpenAI classifier (%s)", o.Model)
		return NewCachedClassifier(NewRateLimitedClassifier(o, rps), ttl), cm, nil

	default:
		return nil, nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
