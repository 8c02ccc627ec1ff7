package config

import (
	"errors"
	"fmt"
)

// Validate checks the fields required by the enabled features.
func (c *Config) Validate() error {
	if c.GitHub.Account == "" {
		return errors.New("github.account is required")
	}
	if c.GitHub.APIBaseURL == "" {
		return errors.New("github.api_base_url is required")
	}
	if c.GitHub.PerPage <= 0 || c.GitHub.PerPage > 100 {
		return fmt.Errorf("github.per_page (%d) must be between 1 and 100", c.GitHub.PerPage)
	}

	switch c.Classification.Type {
	case "none":
	case "llm":
		switch c.Classification.Provider {
		case "openai", "gemini":
		default:
			return fmt.Errorf("classification.provider %q is not supported (openai, gemini)", c.Classification.Provider)
		}
		if c.Classification.Model == "" {
			return errors.New("classification.model is required when classification.type is llm")
		}
	default:
		return fmt.Errorf("classification.type %q is not supported (llm, none)", c.Classification.Type)
	}
	if c.Classification.MaxConcurrency < 0 {
		return errors.New("classification.max_concurrency must not be negative")
	}
	if c.Classification.CacheTTL < 0 {
		return errors.New("classification.cache_ttl must not be negative")
	}

	switch c.Cache.Backend {
	case "memory":
	case "file", "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend %q is not supported (file, sqlite, memory)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q is not supported (text, json)", c.Log.Format)
	}

	for provider, models := range c.Pricing {
		for model, price := range models {
			if price.InputPerToken < 0 || price.OutputPerToken < 0 {
				return fmt.Errorf("pricing for provider '%s', model '%s' has negative token cost", provider, model)
			}
		}
	}
	return nil
}
