// Package config centralizes the environment and flag bindings every
// dsq subcommand needs: Redis addresses, the HTTP API key, bind
// addresses and the app environment that selects log formatting.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the resolved settings for a dsq process.
type Config struct {
	QueueRedisAddr  string
	ResultRedisAddr string
	APIKey          string
	HTTPAddr        string
	MetricsAddr     string
	AppEnv          string
	DefaultQueue    string
	UnknownQueue    string
	DefaultRetryDly int
}

// Load reads environment variables (prefixed DSQ_, except the
// unprefixed API_KEY and APP_ENV) and returns a Config with the
// teacher's defaults preserved (127.0.0.1:6379 for Redis,
// 127.0.0.1:9042 for HTTP per spec.md §6).
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("dsq")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("result_redis_addr", "")
	v.SetDefault("http_addr", "127.0.0.1:9042")
	v.SetDefault("metrics_addr", "127.0.0.1:8080")
	v.SetDefault("default_queue", "dsq")
	v.SetDefault("unknown_queue", "unknown")
	v.SetDefault("default_retry_delay", 60)

	result := v.GetString("result_redis_addr")
	if result == "" {
		result = v.GetString("redis_addr")
	}

	return &Config{
		QueueRedisAddr:  v.GetString("redis_addr"),
		ResultRedisAddr: result,
		APIKey:          os.Getenv("API_KEY"),
		HTTPAddr:        v.GetString("http_addr"),
		MetricsAddr:     v.GetString("metrics_addr"),
		AppEnv:          os.Getenv("APP_ENV"),
		DefaultQueue:    v.GetString("default_queue"),
		UnknownQueue:    v.GetString("unknown_queue"),
		DefaultRetryDly: v.GetInt("default_retry_delay"),
	}
}
