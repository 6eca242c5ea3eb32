// Package transport sends encoded calls to the order-entry service with
// timeouts, bounded retries and an optional circuit breaker.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/protocol"
)

// Doer performs one logical call and returns the raw reply body.
type Doer interface {
	Do(ctx context.Context, call protocol.Call) ([]byte, error)
}

// Observer sees every physical attempt, including retries and
// short-circuited attempts. attempt counts from 1 within one Do call.
type Observer interface {
	ObserveAttempt(ctx context.Context, call protocol.Call, attempt int, body []byte, err error, elapsed time.Duration)
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	Enabled bool
	// Threshold is the number of consecutive transient failures that opens
	// the circuit.
	Threshold uint32
	CoolDown  time.Duration
}

// Config configures a Client.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Policy         Policy
	VerifyTLS      bool
	CACertPath     string
	Breaker        BreakerConfig
}

// DefaultConfig mirrors the service's published connection limits.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    60 * time.Second,
		Policy:         DefaultPolicy(),
		VerifyTLS:      true,
		Breaker:        BreakerConfig{Enabled: true, Threshold: 5, CoolDown: 30 * time.Second},
	}
}

// Client is safe for concurrent use.
type Client struct {
	http     *resty.Client
	policy   Policy
	breaker  *gobreaker.CircuitBreaker
	metrics  *Metrics
	observer Observer
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New builds a Client. The connect timeout bounds dialing and the TLS
// handshake, the read timeout bounds the wait for response headers.
func New(cfg Config, opts ...Option) (*Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS} //nolint:gosec
	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, errors.Wrap(err, "[transport] - failed to read CA certificate")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Newf("[transport] - no certificates in %s", cfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	hc := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSClientConfig:       tlsConfig,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			ResponseHeaderTimeout: cfg.ReadTimeout,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
	}

	c := &Client{
		http:   resty.NewWithClient(hc),
		policy: cfg.Policy,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("transport")
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.logger, c.metrics)
	}
	return c, nil
}

// BreakerState reports "closed", "half-open" or "open", or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Do sends call, retrying transient failures. Non-retryable failures are
// returned after the first attempt.
func (c *Client) Do(ctx context.Context, call protocol.Call) ([]byte, error) {
	attempts := 0
	op := func() ([]byte, error) {
		attempts++
		start := time.Now()
		body, err := c.attempt(ctx, call)
		if c.observer != nil {
			c.observer.ObserveAttempt(ctx, call, attempts, body, err, time.Since(start))
		}
		if err != nil && !errs.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.Retries.WithLabelValues(call.Method).Inc()
		c.logger.Warn("retrying call",
			zap.String("method", call.Method),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	body, err := c.policy.retry(ctx, op, notify)
	if err == nil {
		return body, nil
	}
	if errs.IsRetryable(err) {
		return nil, errs.Transport(err, true,
			fmt.Sprintf("[transport] - %s failed after %d attempts", call.Method, attempts))
	}
	if _, ok := errs.As(err); ok {
		return nil, err
	}
	// backoff returns the bare context error when cancelled between attempts
	return nil, errs.Transport(err, false, "[transport] - request cancelled by caller")
}

func (c *Client) attempt(ctx context.Context, call protocol.Call) ([]byte, error) {
	if c.breaker == nil {
		return c.send(ctx, call)
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, call)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.Attempts.WithLabelValues(call.Method, "short_circuit").Inc()
		return nil, errs.Transport(ErrCircuitOpen, false, "[transport] - "+call.Method+" short-circuited")
	}
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *Client) send(ctx context.Context, call protocol.Call) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.Duration.WithLabelValues(call.Method).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", fmt.Sprintf(`application/soap+xml; charset=utf-8; action="%s"`, call.Action)).
		SetHeader("SOAPAction", call.Action).
		SetBody(call.Body).
		Post(call.Endpoint)
	if err != nil {
		c.metrics.Attempts.WithLabelValues(call.Method, "error").Inc()
		return nil, classify(ctx, err)
	}

	status := resp.StatusCode()
	body := resp.Body()
	switch {
	case status >= 200 && status < 300:
	case status == http.StatusInternalServerError && strings.Contains(string(body), "Fault"):
		// SOAP faults arrive as 500 and are decoded by the caller
	default:
		c.metrics.Attempts.WithLabelValues(call.Method, "http_"+fmt.Sprint(status)).Inc()
		return nil, classifyStatus(status, string(body))
	}
	c.metrics.Attempts.WithLabelValues(call.Method, "ok").Inc()
	return body, nil
}
