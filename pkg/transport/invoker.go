// Package transport performs the single HTTP round trip behind every client
// call and maps the outcome to a response, an absent value or an error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/http-async-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for transport operations.
var (
	transportRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpclient_transport_requests_total",
		Help: "Total downstream requests by method and status",
	}, []string{"method", "status"})

	transportRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "httpclient_transport_request_duration_seconds",
		Help:    "Downstream request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	transportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpclient_transport_errors_total",
		Help: "Total downstream errors by class",
	}, []string{"class"})
)

// Method is an HTTP verb supported by the invoker.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// hasBody reports whether requests with this method carry a JSON body.
func (m Method) hasBody() bool {
	return m == MethodPost || m == MethodPut
}

// valid reports whether the method is one of the four supported verbs.
func (m Method) valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	default:
		return false
	}
}

// ErrorClass represents a classification of failed requests.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// classifyStatus categorizes a failed status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 500:
		return ErrorClassServer
	case statusCode >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// Config holds the invoker configuration.
type Config struct {
	// User-Agent header sent with every request
	UserAgent string

	// Timeout applied by the shared http.Client
	Timeout time.Duration

	// RateLimit paces requests per downstream host (disabled when zero)
	RateLimit ratelimit.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// Response is a successful downstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Invoker executes requests through one shared http.Client.
type Invoker struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates an invoker.
func New(cfg Config) *Invoker {
	logger := log.With().Str("component", "transport").Logger()

	return &Invoker{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(cfg.RateLimit, logger),
		config:  cfg,
		logger:  logger,
	}
}

// SetHTTPClient replaces the shared HTTP client (for testing or custom
// transports).
func (i *Invoker) SetHTTPClient(client *http.Client) {
	i.httpClient = client
}

// Close releases idle connections held by the shared client.
func (i *Invoker) Close() error {
	i.httpClient.CloseIdleConnections()
	return nil
}

// Do performs exactly one round trip.
//
// It returns the response for a 2xx status, nil for 404, a
// *RequestFailedError for any other status and an *InvalidArgumentError for
// an unsupported method. body is JSON-encoded for POST and PUT and ignored
// otherwise.
func (i *Invoker) Do(ctx context.Context, method Method, baseAddress, uri string, body any, headers map[string]string) (*Response, error) {
	if !method.valid() {
		return nil, &InvalidArgumentError{Method: method}
	}

	target, err := resolve(baseAddress, uri)
	if err != nil {
		return nil, err
	}

	req, err := newRequest(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if i.config.UserAgent != "" {
		req.Header.Set("User-Agent", i.config.UserAgent)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	if err := i.limiter.Wait(ctx, target.Host); err != nil {
		return nil, err
	}

	startTime := time.Now()
	defer func() {
		transportRequestDuration.WithLabelValues(string(method)).Observe(time.Since(startTime).Seconds())
	}()

	i.logger.Debug().
		Str("method", string(method)).
		Str("url", target.String()).
		Msg("Executing request")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		transportErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		transportRequestsTotal.WithLabelValues(string(method), "network_error").Inc()
		i.logger.Warn().Err(err).
			Str("method", string(method)).
			Str("url", target.String()).
			Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	transportRequestsTotal.WithLabelValues(string(method), strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		transportErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return i.handleResponse(method, target, resp, data)
}

// handleResponse maps a status code to the three-way outcome.
func (i *Invoker) handleResponse(method Method, target *url.URL, resp *http.Response, data []byte) (*Response, error) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       data,
		}, nil

	case resp.StatusCode == http.StatusNotFound:
		i.logger.Debug().
			Str("method", string(method)).
			Str("url", target.String()).
			Msg("Resource not found")
		return nil, nil

	default:
		reqErr := &RequestFailedError{
			Reason:     reasonPhrase(resp),
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		class := reqErr.Class()
		if class == "" {
			class = ErrorClassClient
		}
		transportErrorsTotal.WithLabelValues(string(class)).Inc()

		i.logger.Warn().
			Str("method", string(method)).
			Str("url", target.String()).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Downstream request error")
		return nil, reqErr
	}
}

// Decode converts a response into T. A nil response, an empty body and a
// JSON null all decode to nil.
func Decode[T any](resp *Response) (*T, error) {
	if resp == nil {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	out := new(T)
	if err := json.Unmarshal(trimmed, out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// resolve resolves uri against baseAddress. An absolute uri is used as is.
func resolve(baseAddress, uri string) (*url.URL, error) {
	ref, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}

	base, err := url.Parse(baseAddress)
	if err != nil {
		return nil, fmt.Errorf("parse base address %q: %w", baseAddress, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base address %q must be absolute", baseAddress)
	}

	return base.ResolveReference(ref), nil
}

// newRequest builds the request, encoding body for POST and PUT.
func newRequest(ctx context.Context, method Method, target *url.URL, body any) (*http.Request, error) {
	if !method.hasBody() {
		req, err := http.NewRequestWithContext(ctx, string(method), target.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		return req, nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return req, nil
}

// reasonPhrase extracts the reason phrase from resp.Status ("503 Service
// Unavailable" -> "Service Unavailable").
func reasonPhrase(resp *http.Response) string {
	if reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); reason != "" && reason != resp.Status {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
