package am

import (
	"net/url"

	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/version"
)

// Validate checks that the configuration is usable for a run.
func (c *Config) Validate() error {
	if err := version.Check(c.Requires, version.Version); err != nil {
		return err
	}

	// Source: a fixture file or a reachable catalog, never neither
	if !c.Source.Offline() {
		if c.Source.BaseURL == "" {
			return errors.WithHint(
				errors.New("source.base_url cannot be empty"),
				"set source.base_url, ATTRGEN_BASE_URL or source.offline_file",
			)
		}
		u, err := url.Parse(c.Source.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("source.base_url %q is not an absolute URL", c.Source.BaseURL)
		}
	}
	if c.Source.RequestsPerMinute < 0 {
		return errors.Newf("source.requests_per_minute must be >= 0, got %d", c.Source.RequestsPerMinute)
	}
	if c.Source.TimeoutSeconds < 0 {
		return errors.Newf("source.timeout_seconds must be >= 0, got %d", c.Source.TimeoutSeconds)
	}

	// Generation: 0 means default, negative is invalid
	if c.Generation.MaxAttempts < 0 {
		return errors.Newf("generation.max_attempts must be > 0, got %d", c.Generation.MaxAttempts)
	}

	seen := make(map[string]bool, len(c.Attributes))
	for _, def := range c.Attributes {
		if err := def.Validate(); err != nil {
			return err
		}
		if seen[def.Name] {
			return errors.Newf("duplicate attribute definition %q", def.Name)
		}
		seen[def.Name] = true
	}

	for key, value := range c.Counters {
		if value < 0 {
			return errors.Newf("counters.%s must be >= 0, got %d", key, value)
		}
	}

	return nil
}
