// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with STARPORT_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Parameters:
//   - configPath: Path to the configuration file (optional, defaults apply)
//
// Returns:
//   - *Bootstrap: Loaded configuration
//   - error: Configuration loading or validation error
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with STARPORT_ prefix
	v.SetEnvPrefix("STARPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without STARPORT_ prefix) for compatibility
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "STARPORT_DATA_REDIS_ADDR")
	_ = v.BindEnv("swapi.base_url", "SWAPI_BASE_URL", "STARPORT_SWAPI_BASE_URL")
	_ = v.BindEnv("swapi.proxy_url", "SWAPI_PROXY_URL", "STARPORT_SWAPI_PROXY_URL")
	_ = v.BindEnv("statistics.cache_ttl", "STATISTICS_CACHE_TTL", "STARPORT_STATISTICS_CACHE_TTL")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				Db:           v.GetInt32("data.redis.db"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Swapi: &Swapi{
			BaseUrl:                         v.GetString("swapi.base_url"),
			Timeout:                         durationpb.New(v.GetDuration("swapi.timeout")),
			RetryTimes:                      v.GetInt32("swapi.retry_times"),
			RetrySleep:                      durationpb.New(v.GetDuration("swapi.retry_sleep")),
			ProxyUrl:                        v.GetString("swapi.proxy_url"),
			DefaultPageSize:                 v.GetInt32("swapi.default_page_size"),
			CircuitFailureThreshold:         v.GetInt32("swapi.circuit_failure_threshold"),
			CircuitTimeout:                  durationpb.New(v.GetDuration("swapi.circuit_timeout")),
			CircuitHalfOpenSuccessThreshold: v.GetInt32("swapi.circuit_half_open_success_threshold"),
		},
		Statistics: &Statistics{
			QueryLogKey:        v.GetString("statistics.query_log_key"),
			QueryCountsKey:     v.GetString("statistics.query_counts_key"),
			FilmQueryLogKey:    v.GetString("statistics.film_query_log_key"),
			FilmQueryCountsKey: v.GetString("statistics.film_query_counts_key"),
			SearchLogKey:       v.GetString("statistics.search_log_key"),
			SearchCountsKey:    v.GetString("statistics.search_counts_key"),
			CacheKey:           v.GetString("statistics.cache_key"),
			CacheTtl:           durationpb.New(v.GetDuration("statistics.cache_ttl")),
			RecomputeCron:      v.GetString("statistics.recompute_cron"),
			MetricsQueueSize:   v.GetInt32("statistics.metrics_queue_size"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	// Validate required fields
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Upstream SWAPI defaults
	v.SetDefault("swapi.base_url", "https://www.swapi.tech/api")
	v.SetDefault("swapi.timeout", 5*time.Second)
	v.SetDefault("swapi.retry_times", 2)
	v.SetDefault("swapi.retry_sleep", 100*time.Millisecond)
	v.SetDefault("swapi.default_page_size", 10)
	v.SetDefault("swapi.circuit_failure_threshold", 5)
	v.SetDefault("swapi.circuit_timeout", 60*time.Second)
	v.SetDefault("swapi.circuit_half_open_success_threshold", 2)

	// Statistics defaults
	v.SetDefault("statistics.query_log_key", "swapi:query_log")
	v.SetDefault("statistics.query_counts_key", "swapi:query_counts")
	v.SetDefault("statistics.film_query_log_key", "swapi:film_query_log")
	v.SetDefault("statistics.film_query_counts_key", "swapi:film_query_counts")
	v.SetDefault("statistics.search_log_key", "swapi:search_log")
	v.SetDefault("statistics.search_counts_key", "swapi:search_counts")
	v.SetDefault("statistics.cache_key", "swapi:statistics")
	v.SetDefault("statistics.cache_ttl", 360*time.Second)
	v.SetDefault("statistics.recompute_cron", "0 */5 * * * *")
	v.SetDefault("statistics.metrics_queue_size", 1024)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing or invalid fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Swapi == nil || bc.Swapi.BaseUrl == "" {
		missingFields = append(missingFields, "swapi.base_url (SWAPI_BASE_URL)")
	}

	if bc.Data == nil || bc.Data.Redis == nil || bc.Data.Redis.Addr == "" {
		missingFields = append(missingFields, "data.redis.addr (REDIS_ADDR)")
	}

	if bc.Swapi != nil && bc.Swapi.RetryTimes < 0 {
		missingFields = append(missingFields, "swapi.retry_times (must be >= 0)")
	}

	if bc.Statistics != nil && bc.Statistics.CacheKey == "" {
		missingFields = append(missingFields, "statistics.cache_key")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing or invalid required configuration: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
