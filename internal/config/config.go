// Package config holds the gateway configuration structs and loader.
package config

import (
	"fmt"
	"time"

	"github.com/opendgw/odg/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Mode            string `mapstructure:"mode"`              // gin mode: debug or release
	ReadTimeout     int    `mapstructure:"read_timeout"`      // seconds
	WriteTimeout    int    `mapstructure:"write_timeout"`     // seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`  // seconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// Address returns the host:port listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig configures the identity-claims adapter at the transport edge.
// The gateway never issues credentials; it only reads claims from tokens the
// external authentication provider signed with the shared secret.
type AuthConfig struct {
	TokenSecret string `mapstructure:"token_secret"`
	Issuer      string `mapstructure:"issuer"`
}

// TierQuota overrides a tier's default quota.
type TierQuota struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type RateLimitConfig struct {
	// Store selects the counter store: "redis" or "postgres".
	Store string `mapstructure:"store"`
	// FailurePolicy is applied uniformly on counter-store failures:
	// "fail_closed" (default) or "fail_open".
	FailurePolicy string `mapstructure:"failure_policy"`
	// StoreTimeoutMillis bounds every counter-store call.
	StoreTimeoutMillis int `mapstructure:"store_timeout_millis"`
	// RetentionSeconds is how long admission records are kept.
	RetentionSeconds int `mapstructure:"retention_seconds"`
	// SweepIntervalSeconds is how often the retention sweep runs.
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	// Tiers optionally overrides per-tier quotas by level name.
	Tiers map[string]TierQuota `mapstructure:"tiers"`
}

// Policy returns the typed failure policy, defaulting to fail-closed.
func (c *RateLimitConfig) Policy() constants.FailurePolicy {
	if constants.FailurePolicy(c.FailurePolicy) == constants.FailOpen {
		return constants.FailOpen
	}
	return constants.FailClosed
}

// StoreTimeout returns the configured store timeout.
func (c *RateLimitConfig) StoreTimeout() time.Duration {
	if c.StoreTimeoutMillis <= 0 {
		return constants.DefaultStoreTimeout
	}
	return time.Duration(c.StoreTimeoutMillis) * time.Millisecond
}

// Retention returns the configured record retention.
func (c *RateLimitConfig) Retention() time.Duration {
	if c.RetentionSeconds <= 0 {
		return constants.DefaultRetention
	}
	return time.Duration(c.RetentionSeconds) * time.Second
}

// SweepInterval returns the configured sweep cadence.
func (c *RateLimitConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return constants.DefaultSweepInterval
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

type CacheConfig struct {
	MaxCachedResources   int `mapstructure:"max_cached_resources"`
	CacheDurationSeconds int `mapstructure:"cache_duration_seconds"`
	ContentTTLSeconds    int `mapstructure:"content_ttl_seconds"`
	CleanupSeconds       int `mapstructure:"cleanup_seconds"`
}

// Capacity returns the cache capacity with the default applied.
func (c *CacheConfig) Capacity() int {
	if c.MaxCachedResources <= 0 {
		return constants.DefaultMaxCachedResources
	}
	return c.MaxCachedResources
}

// CacheDuration returns the freshness horizon for cache-hit accounting.
func (c *CacheConfig) CacheDuration() time.Duration {
	if c.CacheDurationSeconds <= 0 {
		return constants.DefaultCacheDuration
	}
	return time.Duration(c.CacheDurationSeconds) * time.Second
}

// ContentTTL returns the content byte-cache TTL.
func (c *CacheConfig) ContentTTL() time.Duration {
	if c.ContentTTLSeconds <= 0 {
		return constants.DefaultContentTTL
	}
	return time.Duration(c.ContentTTLSeconds) * time.Second
}

type StorageConfig struct {
	// DataRoot is the directory JSON resources are served from.
	DataRoot string `mapstructure:"data_root"`
	// WatchEnabled turns on filesystem change notification for cache
	// invalidation.
	WatchEnabled bool `mapstructure:"watch_enabled"`
}

type RedisConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// GetDSN builds the postgres connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type AuditConfig struct {
	// Sink selects the audit publisher: "log" or "kafka".
	Sink    string   `mapstructure:"sink"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

type DebugConfig struct {
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Storage.DataRoot == "" {
		return fmt.Errorf("storage.data_root is required")
	}
	switch c.RateLimit.Store {
	case "", "redis", "postgres":
	default:
		return fmt.Errorf("rate_limit.store must be redis or postgres, got %q", c.RateLimit.Store)
	}
	switch constants.FailurePolicy(c.RateLimit.FailurePolicy) {
	case "", constants.FailClosed, constants.FailOpen:
	default:
		return fmt.Errorf("rate_limit.failure_policy must be fail_closed or fail_open, got %q", c.RateLimit.FailurePolicy)
	}
	return nil
}
