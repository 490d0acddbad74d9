package config

import (
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from config.yaml and ODG_* environment
// variables, environment taking precedence.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)
	v.SetDefault("server.shutdown_timeout", 10)
	v.SetDefault("rate_limit.store", "redis")
	v.SetDefault("rate_limit.failure_policy", "fail_closed")
	v.SetDefault("rate_limit.store_timeout_millis", 2000)
	v.SetDefault("rate_limit.retention_seconds", 86400)
	v.SetDefault("rate_limit.sweep_interval_seconds", 600)
	v.SetDefault("cache.max_cached_resources", 1000)
	v.SetDefault("cache.cache_duration_seconds", 3600)
	v.SetDefault("cache.content_ttl_seconds", 300)
	v.SetDefault("storage.data_root", "./data")
	v.SetDefault("storage.watch_enabled", true)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.topic", "odg.audit")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.service_name", "odg-gateway")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"/etc/odg/", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("ODG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
