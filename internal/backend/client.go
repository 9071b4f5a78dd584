package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-portal/internal/config"
	"github.com/jwalitptl/patient-portal/pkg/circuitbreaker"
	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

const maxResponseBytes = 4 << 20

// ErrStatus is wrapped when the backend answers with a non-2xx status and a
// body that is not a JSON envelope.
var ErrStatus = errors.New("unexpected backend status")

// Client talks to the hospital backend API. Transport, status and decoding
// failures are returned as errors; a decoded envelope with success=false is
// returned to the caller as data.
type Client struct {
	baseURL   *url.URL
	endpoints config.EndpointsConfig
	http      *http.Client
	timeout   time.Duration
	breaker   *circuitbreaker.CircuitBreaker
	validate  *validator.Validate
	lists     *cache.Cache
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func NewClient(cfg config.BackendConfig, m *metrics.Metrics, logger zerolog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if m == nil {
		m = metrics.NewNop()
	}

	logger = logger.With().Str("component", "backend").Logger()
	c := &Client{
		baseURL:   base,
		endpoints: cfg.Endpoints,
		http:      &http.Client{},
		timeout:   cfg.Timeout,
		validate:  validator.New(),
		metrics:   m,
		logger:    logger,
	}
	if cfg.ListCacheTTL > 0 {
		c.lists = cache.New(cfg.ListCacheTTL, 2*cfg.ListCacheTTL)
	}
	c.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "backend",
		MaxFailures: cfg.Breaker.MaxFailures,
		Timeout:     cfg.Breaker.OpenTimeout,
		OnChange: func(name, from, to string) {
			logger.Warn().Str("breaker", name).Str("from", from).Str("to", to).Msg("Backend circuit breaker state changed")
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ready reports whether the backend breaker currently admits calls.
func (c *Client) Ready() bool {
	return c.breaker.State() != "open"
}

func (c *Client) endpointURL(path string, query url.Values) string {
	ref := &url.URL{Path: strings.TrimLeft(path, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return c.baseURL.ResolveReference(ref).String()
}

// do sends one request and decodes the JSON reply into out. endpoint labels
// metrics and logs.
func (c *Client) do(ctx context.Context, method, endpoint, target string, body, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	start := time.Now()
	status := "error"
	defer func() {
		c.metrics.BackendRequests.WithLabelValues(endpoint, status).Inc()
		c.metrics.BackendLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	err := c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, method, target, payload)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		status = strconv.Itoa(resp.StatusCode)

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
			}
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Str("method", method).Msg("Backend request failed")
		return err
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, c.endpointURL(path, query), nil, out)
}

func (c *Client) post(ctx context.Context, endpoint, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, endpoint, c.endpointURL(path, nil), body, out)
}

// InvalidateLists drops cached appointment lists.
func (c *Client) InvalidateLists() {
	if c.lists != nil {
		c.lists.Flush()
	}
}
