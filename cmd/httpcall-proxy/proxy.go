package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Sternrassler/http-async-client/pkg/batch"
	"github.com/Sternrassler/http-async-client/pkg/cache"
	"github.com/Sternrassler/http-async-client/pkg/client"
	"github.com/Sternrassler/http-async-client/pkg/config"
	"github.com/Sternrassler/http-async-client/pkg/logging"
	"github.com/Sternrassler/http-async-client/pkg/metrics"
	"github.com/Sternrassler/http-async-client/pkg/store"
	"github.com/Sternrassler/http-async-client/pkg/transport"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// identifierHeader is the inbound form of cache.IdentifierHeader.
const identifierHeader = "X-Resource-Identifier"

// maxBodyBytes caps inbound POST/PUT bodies.
const maxBodyBytes = 10 << 20

type proxy struct {
	client   *client.Client
	services map[string]config.Service
	hooks    store.Hooks[payload]
	batch    batch.Config
}

// newProxy wires the client to the configured services. A nil store
// disables caching.
func newProxy(cfg *config.Config, c *client.Client, st store.Store) *proxy {
	p := &proxy{
		client:   c,
		services: make(map[string]config.Service, len(cfg.Services)),
		batch:    batch.DefaultConfig(),
	}
	for _, svc := range cfg.Services {
		p.services[svc.Name] = svc
	}
	if st != nil {
		p.hooks = store.Bind[payload](st, cfg.Cache.TTL)
	}
	return p
}

func (p *proxy) routes(logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware(logger))

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/services/{service}", func(r chi.Router) {
		r.Get("/*", p.handleGet)
		r.Post("/*", p.handlePost)
		r.Put("/*", p.handlePut)
		r.Delete("/*", p.handleDelete)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// warmup fetches every service's warm-up URIs through the cache. Failures
// are logged and do not stop startup.
func (p *proxy) warmup(ctx context.Context) {
	for _, svc := range p.services {
		if len(svc.Warmup) == 0 {
			continue
		}

		baseAddress := svc.BaseAddress
		results, err := batch.FetchAll(ctx, p.batch, svc.Warmup, func(ctx context.Context, uri string) (*payload, error) {
			return client.Get(ctx, p.client, baseAddress, uri, nil, p.hooks.Check, p.hooks.Set)
		})

		event := log.Info()
		if err != nil {
			event = log.Warn().Err(err)
		}
		event.
			Str("service", svc.Name).
			Int("fetched", len(results)).
			Int("total", len(svc.Warmup)).
			Msg("Warm-up complete")
	}
}

// target resolves the service and the downstream uri for r. It writes a 404
// and returns false when the service is unknown.
func (p *proxy) target(w http.ResponseWriter, r *http.Request) (baseAddress, uri string, ok bool) {
	name := chi.URLParam(r, "service")
	svc, found := p.services[name]
	if !found {
		http.Error(w, fmt.Sprintf("unknown service %q", name), http.StatusNotFound)
		return "", "", false
	}

	uri = "/" + chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		uri += "?" + r.URL.RawQuery
	}
	return svc.BaseAddress, uri, true
}

// forwardHeaders builds the downstream header set. The map is never nil so
// cached POST/PUT calls require the identifier header.
func forwardHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, 2)
	if id := r.Header.Get(identifierHeader); id != "" {
		headers[cache.IdentifierHeader] = id
	}
	if id := logging.RequestID(r.Context()); id != "" {
		headers[logging.RequestIDHeader] = id
	}
	return headers
}

func (p *proxy) handleGet(w http.ResponseWriter, r *http.Request) {
	baseAddress, uri, ok := p.target(w, r)
	if !ok {
		return
	}

	resp, err := client.Get(r.Context(), p.client, baseAddress, uri, forwardHeaders(r), p.hooks.Check, p.hooks.Set)
	writeResult(w, r, resp, err)
}

func (p *proxy) handlePost(w http.ResponseWriter, r *http.Request) {
	p.handleWrite(w, r, func(ctx context.Context, baseAddress, uri string, body payload, headers map[string]string) (*payload, error) {
		return client.Post(ctx, p.client, baseAddress, uri, body, headers, p.hooks.Check, p.hooks.Set)
	})
}

func (p *proxy) handlePut(w http.ResponseWriter, r *http.Request) {
	p.handleWrite(w, r, func(ctx context.Context, baseAddress, uri string, body payload, headers map[string]string) (*payload, error) {
		return client.Put(ctx, p.client, baseAddress, uri, body, headers, p.hooks.Check, p.hooks.Set)
	})
}

type writeCall func(ctx context.Context, baseAddress, uri string, body payload, headers map[string]string) (*payload, error)

func (p *proxy) handleWrite(w http.ResponseWriter, r *http.Request, call writeCall) {
	baseAddress, uri, ok := p.target(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("read request body: %v", err), http.StatusBadRequest)
		return
	}

	var body payload
	if len(data) > 0 {
		body = payload(data)
	}

	resp, err := call(r.Context(), baseAddress, uri, body, forwardHeaders(r))
	writeResult(w, r, resp, err)
}

func (p *proxy) handleDelete(w http.ResponseWriter, r *http.Request) {
	baseAddress, uri, ok := p.target(w, r)
	if !ok {
		return
	}

	if err := p.client.Delete(r.Context(), baseAddress, uri, forwardHeaders(r), p.hooks.Void); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeResult(w http.ResponseWriter, r *http.Request, resp *payload, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if resp == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(*resp)
}

// writeError maps client errors to proxy responses: downstream failures keep
// their status and body, a missing identifier is the caller's fault and
// everything else is a bad gateway.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *transport.RequestFailedError
	switch {
	case errors.As(err, &reqErr):
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(reqErr.StatusCode)
		io.WriteString(w, reqErr.Body)

	case errors.Is(err, cache.ErrMissingIdentifier), errors.Is(err, transport.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)

	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Proxy call failed")
		http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
	}
}
