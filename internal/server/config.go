package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/financing-simulator/internal/config"
	"github.com/iwvelando/financing-simulator/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address       string               `yaml:"address"`
	MaxUploadSize string               `yaml:"maxUploadSize"`
	Logging       config.LoggingConfig `yaml:"logging"`
	Tax           config.TaxConfig     `yaml:"tax"`
	RateLimit     RateLimitConfig      `yaml:"rateLimit"`
	Cache         CacheConfig          `yaml:"cache"`
	TrustProxy    bool                 `yaml:"trustProxy"`

	uploadSizeBytes int64
}

// RateLimitConfig bounds how many requests one client may make per window.
// A negative capacity disables rate limiting.
type RateLimitConfig struct {
	Capacity int    `yaml:"capacity"`
	Window   string `yaml:"window"`

	window time.Duration
}

// CacheConfig selects where simulation results are cached. An empty
// RedisURL keeps results in process memory; a TTL of "0" disables caching.
type CacheConfig struct {
	RedisURL string `yaml:"redisURL"`
	TTL      string `yaml:"ttl"`

	ttl time.Duration
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:       constants.DefaultServerAddress,
		MaxUploadSize: fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes),
		Logging:       config.LoggingConfig{},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read server config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = fmt.Sprintf("%d", size)
	}
}

// WindowDuration returns the parsed rate limit window.
func (c RateLimitConfig) WindowDuration() time.Duration {
	return c.window
}

// Enabled reports whether requests are rate limited.
func (c RateLimitConfig) Enabled() bool {
	return c.Capacity > 0
}

// TTLDuration returns the parsed cache TTL.
func (c CacheConfig) TTLDuration() time.Duration {
	return c.ttl
}

// Enabled reports whether results are cached.
func (c CacheConfig) Enabled() bool {
	return c.ttl > 0
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}

	sizeStr := strings.TrimSpace(c.MaxUploadSize)
	if sizeStr == "" {
		c.uploadSizeBytes = constants.DefaultMaxUploadSizeBytes
		c.MaxUploadSize = fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes)
	} else {
		bytes, err := ParseSize(sizeStr)
		if err != nil {
			return err
		}
		if bytes <= 0 {
			bytes = constants.DefaultMaxUploadSizeBytes
		}
		c.uploadSizeBytes = bytes
	}

	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = constants.DefaultRateLimitCapacity
	}
	window, err := parseDuration(c.RateLimit.Window, constants.DefaultRateLimitWindow)
	if err != nil {
		return fmt.Errorf("invalid rateLimit.window: %w", err)
	}
	if window <= 0 {
		return fmt.Errorf("invalid rateLimit.window: must be positive, got %s", c.RateLimit.Window)
	}
	c.RateLimit.window = window

	ttl, err := parseDuration(c.Cache.TTL, constants.DefaultCacheTTL)
	if err != nil {
		return fmt.Errorf("invalid cache.ttl: %w", err)
	}
	c.Cache.ttl = ttl

	return nil
}

func parseDuration(value, fallback string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = fallback
	}
	return time.ParseDuration(trimmed)
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
