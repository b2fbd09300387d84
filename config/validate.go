package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid config")

// Validate checa todas as seções e junta os erros.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rate_limit: %w", err))
	}
	if err := c.Recency.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("recency: %w", err))
	}
	if err := c.Media.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("media: %w", err))
	}
	if err := c.Player.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}
	if err := c.Stats.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stats: %w", err))
	}
	if c.UsesRedis() && strings.TrimSpace(c.Redis.Addr) == "" {
		errs = append(errs, errors.New("redis: addr is required when a redis backend is selected"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen is required")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("concurrency_max must be >= 0")
	}
	return nil
}

func (c *RateLimitConfig) Validate() error {
	if c.MaxRequests <= 0 {
		return errors.New("max_requests must be > 0")
	}
	if c.Window.Duration <= 0 {
		return errors.New("window must be > 0")
	}
	if c.SweepEvery.Duration < 0 {
		return errors.New("sweep_every must be >= 0")
	}
	return nil
}

func (c *RecencyConfig) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("capacity must be > 0")
	}
	switch c.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile, BackendSQLite:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("path is required for backend %s", c.Backend)
		}
	default:
		return fmt.Errorf("invalid backend: %q (must be memory, file, sqlite, or redis)", c.Backend)
	}
	return nil
}

func (c *MediaConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) url: %q", c.BaseURL)
	}
	if c.FetchRPS < 0 {
		return errors.New("fetch_rps must be >= 0")
	}
	if c.MaxPageBytes <= 0 {
		return errors.New("max_page_bytes must be > 0")
	}
	return nil
}

func (c *PlayerConfig) Validate() error {
	if len(c.Command) == 0 || strings.TrimSpace(c.Command[0]) == "" {
		return errors.New("command is required")
	}
	if c.MaxDownloadBytes <= 0 {
		return errors.New("max_download_bytes must be > 0")
	}
	return nil
}

func (c *StatsConfig) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid backend: %q (must be memory or redis)", c.Backend)
	}
	switch c.Bucket {
	case "", "minute", "none":
	default:
		return fmt.Errorf("invalid bucket: %q (must be minute or none)", c.Bucket)
	}
	return nil
}
