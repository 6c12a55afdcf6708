// Package api is the only path from the tracker client to the remote
// service.
//
// Every request carries the stored bearer credential when one exists. A 401
// evicts the session before the error reaches the caller. Success bodies
// arrive as {"data": ..., "message": ...}; only data is handed back.
// Requests are attempted exactly once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/srujanaA02/multi-tenant-saas/internal/config"
	"github.com/srujanaA02/multi-tenant-saas/internal/logging"
	"github.com/srujanaA02/multi-tenant-saas/internal/session"
)

const maxResponseSize = 10 << 20

// SessionStore is the part of the session store the client needs.
type SessionStore interface {
	Token() (string, bool)
	Evict(cause string) error
}

// Client sends requests to the tracker service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      SessionStore
	limiter    *rate.Limiter
	logger     *logging.Logger
	tracer     trace.Tracer
	metrics    *clientMetrics
	meter      metric.Meter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithMeter sets the meter used for request metrics.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) { c.meter = m }
}

// WithRateLimit bounds outbound requests per second. rps <= 0 disables the
// limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a Client rooted at baseURL.
func New(baseURL string, store SessionStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(instrumentationName)
	}
	if c.meter == nil {
		c.meter = otel.Meter(instrumentationName)
	}
	c.metrics = newClientMetrics(c.meter, c.logger)
	return c, nil
}

// NewFromConfig creates a Client from the api config section.
func NewFromConfig(cfg config.APIConfig, store SessionStore, opts ...Option) (*Client, error) {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Duration()}),
		WithRateLimit(cfg.RateLimit, cfg.Burst),
	}
	return New(cfg.BaseURL, store, append(base, opts...)...)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Do sends one request. body, if non-nil, is JSON-encoded. On success the
// envelope's data is decoded into out when out is non-nil. Failures are
// returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)

	ctx, span := c.tracer.Start(ctx, "api.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	status, err := c.do(ctx, method, path, requestID, body, out)

	kind := "ok"
	var apiErr *Error
	if errors.As(err, &apiErr) {
		kind = string(apiErr.Kind)
	}
	c.metrics.record(ctx, method, status, kind, time.Since(start))

	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug(ctx, "api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Error(err),
		)
		return err
	}

	c.logger.Debug(ctx, "api request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, body, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, &Error{Kind: KindNetwork, Message: msgNetwork, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.store.Token(); ok {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &Error{Kind: KindNetwork, Message: msgNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	// A 401 evicts even when its body could not be read.
	if resp.StatusCode == http.StatusUnauthorized {
		var env envelope
		if readErr == nil {
			_ = json.Unmarshal(raw, &env)
		}
		if err := c.store.Evict(session.CauseUnauthorized); err != nil {
			c.logger.Error(ctx, "failed to evict session after 401", zap.Error(err))
		}
		c.logger.Info(ctx, "session evicted after 401", zap.String("path", path))
		return resp.StatusCode, newStatusError(KindAuthExpired, resp.StatusCode, env.Message, msgUnauthorized)
	}
	if readErr != nil {
		return resp.StatusCode, &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: msgNetwork, Err: readErr}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newStatusError(KindRequestFailed, resp.StatusCode, env.Message, msgRequestFailed)
	}
	// 204 and other empty successes carry no envelope.
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}

	if decodeErr != nil {
		return resp.StatusCode, &Error{
			Kind:    KindRequestFailed,
			Status:  resp.StatusCode,
			Message: "malformed response",
			Err:     decodeErr,
		}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, &Error{
				Kind:    KindRequestFailed,
				Status:  resp.StatusCode,
				Message: "malformed response",
				Err:     err,
			}
		}
	}
	return resp.StatusCode, nil
}

func newStatusError(kind Kind, status int, serverMsg, fallback string) *Error {
	if serverMsg != "" {
		return &Error{Kind: kind, Status: status, Message: serverMsg, fromServer: true}
	}
	return &Error{Kind: kind, Status: status, Message: fallback}
}
