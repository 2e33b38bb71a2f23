// Command httpcall-proxy is a caching reverse proxy in front of JSON
// services. GET, POST and PUT responses are cached in the configured store;
// DELETE invalidates the entry for its endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/http-async-client/pkg/client"
	"github.com/Sternrassler/http-async-client/pkg/config"
	"github.com/Sternrassler/http-async-client/pkg/logging"
	"github.com/Sternrassler/http-async-client/pkg/ratelimit"
	"github.com/Sternrassler/http-async-client/pkg/store"
	"github.com/Sternrassler/http-async-client/pkg/transport"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var configFlag string

func init() {
	flag.StringVar(&configFlag, "config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configFlag)
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		log.Fatal().Err(err).Str("config", configFlag).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Cache.Backend).Msg("Failed to open cache store")
	}
	defer closeStore()
	log.Info().Str("backend", cfg.Cache.Backend).Dur("ttl", cfg.Cache.TTL).Msg("Cache store ready")

	httpClient, err := client.New(client.Config{
		Transport: transport.Config{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			RateLimit: ratelimit.Config{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				Burst:             cfg.RateLimit.Burst,
			},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create HTTP client")
	}
	defer httpClient.Close()

	p := newProxy(cfg, httpClient, st)
	p.warmup(ctx)

	if sqlite, ok := st.(*store.SQLite); ok {
		go purgeLoop(ctx, sqlite, cfg.Cache.TTL)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           p.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().
		Str("listen", cfg.Listen).
		Str("user_agent", cfg.UserAgent).
		Int("services", len(cfg.Services)).
		Msg("Starting proxy server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}

// openStore opens the configured backend. The returned store is nil for the
// "none" backend.
func openStore(ctx context.Context, cfg config.CacheConfig) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s := store.NewRedis(redisClient)
		if err := s.Ping(ctx); err != nil {
			redisClient.Close()
			return nil, noop, err
		}
		return s, redisClient.Close, nil

	case config.BackendSQLite:
		s, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case config.BackendMemory:
		return store.NewMemory(), noop, nil

	default:
		return nil, noop, nil
	}
}

// purgeLoop drops expired SQLite rows once per ttl (minimum one minute).
func purgeLoop(ctx context.Context, s *store.SQLite, ttl time.Duration) {
	interval := ttl
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("SQLite purge failed")
				continue
			}
			log.Debug().Int64("rows", n).Msg("Purged expired cache rows")
		}
	}
}

// payload is the opaque JSON body the proxy caches and forwards.
type payload = json.RawMessage
