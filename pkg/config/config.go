// Package config loads the proxy configuration from a YAML file with
// environment overrides.
//
// Example file:
//
//	listen: ":8080"
//	user_agent: "httpcall-proxy/0.1.0 (ops@example.com)"
//	timeout: 30s
//	log:
//	  level: info
//	  pretty: false
//	rate_limit:
//	  requests_per_second: 5
//	  burst: 10
//	cache:
//	  backend: redis
//	  redis_addr: localhost:6379
//	  ttl: 5m
//	services:
//	  - name: widgets
//	    base_address: http://widgets.internal:9000
//	    warmup:
//	      - /widgets/featured
//
// Environment overrides: PORT, REDIS_URL, LOG_LEVEL, CACHE_BACKEND and
// USER_AGENT.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Sternrassler/http-async-client/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the proxy configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	UserAgent string          `yaml:"user_agent"`
	Timeout   time.Duration   `yaml:"timeout"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Services  []Service       `yaml:"services"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// RateLimitConfig paces outbound requests per host. Zero disables pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CacheConfig selects and configures the response store.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	RedisAddr  string        `yaml:"redis_addr"`
	SQLitePath string        `yaml:"sqlite_path"`
	TTL        time.Duration `yaml:"ttl"`
}

// Service is one downstream the proxy forwards to.
type Service struct {
	Name        string   `yaml:"name"`
	BaseAddress string   `yaml:"base_address"`
	Warmup      []string `yaml:"warmup"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:    ":8080",
		UserAgent: "httpcall-proxy/0.1.0",
		Timeout:   30 * time.Second,
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Cache: CacheConfig{
			Backend:    BackendMemory,
			RedisAddr:  "localhost:6379",
			SQLitePath: "cache.db",
			TTL:        5 * time.Minute,
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.UserAgent == "" {
		errs = append(errs, errors.New("user_agent is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0 (got %s)", c.Timeout))
	}
	if _, err := logging.ParseLevel(logging.LogLevel(c.Log.Level)); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be >= 0 (got %g)", c.RateLimit.RequestsPerSecond))
	}

	switch c.Cache.Backend {
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			errs = append(errs, errors.New("cache.sqlite_path is required for the sqlite backend"))
		}
	case BackendMemory, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be >= 0 (got %s)", c.Cache.TTL))
	}

	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		if svc.Name == "" {
			errs = append(errs, fmt.Errorf("services[%d]: name is required", i))
			continue
		}
		if seen[svc.Name] {
			errs = append(errs, fmt.Errorf("services[%d]: duplicate name %q", i, svc.Name))
		}
		seen[svc.Name] = true

		u, err := url.Parse(svc.BaseAddress)
		if err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Errorf("service %q: base_address must be an absolute URL (got %q)", svc.Name, svc.BaseAddress))
		}
	}

	return errors.Join(errs...)
}

// Service returns the service registered under name.
func (c *Config) Service(name string) (Service, bool) {
	for _, svc := range c.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}
