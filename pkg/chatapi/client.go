// Package chatapi is the HTTP client for the factory chat backend. It applies
// per-attempt timeouts, retries transient failures with exponential backoff,
// and exposes the chat endpoints on top of that transport.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single attempt, including reading the body.
	DefaultTimeout = 60 * time.Second

	// DefaultRetries is the number of additional attempts after the first.
	DefaultRetries = 2

	// NoRetries disables retrying when set as Config.Retries or
	// RequestOptions.Retries.
	NoRetries = -1

	defaultBackoffBase = 500 * time.Millisecond

	// ClientIDHeader identifies the installation to the backend.
	ClientIDHeader = "X-Client-Id"

	maxErrorBody = 1 << 20
)

// ClientIDSource supplies the value of the client id header.
type ClientIDSource interface {
	ClientID(ctx context.Context) (string, error)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the scheme and host of the chat backend.
	BaseURL string

	// Timeout bounds each attempt of a buffered request. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// StreamTimeout bounds each attempt of a streamed request. Defaults to
	// Timeout.
	StreamTimeout time.Duration

	// Retries is the number of retries after the first attempt. Zero means
	// DefaultRetries; use NoRetries to disable.
	Retries int

	// BackoffBase is the first backoff delay, doubled on every retry.
	BackoffBase time.Duration

	HTTPClient *http.Client
	Identity   ClientIDSource
	Logger     *zap.Logger
	Metrics    *Metrics

	// StreamDump receives a verbatim copy of every streamed body.
	StreamDump io.Writer
}

// Client talks to the chat backend. It is safe for concurrent use.
type Client struct {
	baseURL       *url.URL
	timeout       time.Duration
	streamTimeout time.Duration
	retries       int
	backoffBase   time.Duration

	http     *http.Client
	identity ClientIDSource
	logger   *zap.Logger
	metrics  *Metrics
	dump     io.Writer

	fallbackOnce sync.Once
	fallbackID   string
}

// New validates cfg, applies defaults and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("chat api base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing chat api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("chat api base url must be absolute: %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = cfg.Timeout
	}
	switch {
	case cfg.Retries == 0:
		cfg.Retries = DefaultRetries
	case cfg.Retries < 0:
		cfg.Retries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	return &Client{
		baseURL:       base,
		timeout:       cfg.Timeout,
		streamTimeout: cfg.StreamTimeout,
		retries:       cfg.Retries,
		backoffBase:   cfg.BackoffBase,
		http:          cfg.HTTPClient,
		identity:      cfg.Identity,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		dump:          cfg.StreamDump,
	}, nil
}

// ResponseType selects how Request treats a successful body.
type ResponseType int

const (
	// ResponseJSON requires a JSON body. An empty body is read as "{}".
	ResponseJSON ResponseType = iota

	// ResponseText returns the body verbatim.
	ResponseText
)

// RequestSpec describes the HTTP request to send.
type RequestSpec struct {
	Method string
	Query  url.Values
	Header http.Header

	// Body is JSON encoded when non-nil.
	Body any
}

// RequestOptions overrides client defaults for a single call.
type RequestOptions struct {
	Timeout      time.Duration
	Retries      int
	ResponseType ResponseType
}

// Body is a successful, fully read response.
type Body struct {
	Status int
	Header http.Header
	raw    []byte
}

// Text returns the body as a string.
func (b *Body) Text() string {
	return string(b.raw)
}

// Bytes returns the raw body.
func (b *Body) Bytes() []byte {
	return b.raw
}

// DecodeJSON unmarshals the body into v. An empty body decodes as "{}".
func (b *Body) DecodeJSON(v any) error {
	raw := b.raw
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &MalformedResponseError{Reason: "invalid JSON body", Err: err}
	}
	return nil
}

// Request sends a buffered request to path with retries and returns the
// response body.
func (c *Client) Request(ctx context.Context, path string, spec RequestSpec, opts RequestOptions) (*Body, error) {
	var out *Body

	err := c.do(ctx, path, spec, opts, false, func(_ context.Context, resp *http.Response) error {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if opts.ResponseType == ResponseJSON && len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
			return &MalformedResponseError{Reason: "response is not valid JSON"}
		}

		out = &Body{Status: resp.StatusCode, Header: resp.Header, raw: raw}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// handleFunc consumes a successful response within the attempt deadline.
type handleFunc func(ctx context.Context, resp *http.Response) error

// do runs an operation with retries. handle is invoked once per attempt that
// receives a 2xx response.
func (c *Client) do(ctx context.Context, path string, spec RequestSpec, opts RequestOptions, stream bool, handle handleFunc) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
		if stream {
			timeout = c.streamTimeout
		}
	}

	retries := c.retries
	switch {
	case opts.Retries > 0:
		retries = opts.Retries
	case opts.Retries < 0:
		retries = 0
	}

	var body []byte
	if spec.Body != nil {
		var err error
		body, err = json.Marshal(spec.Body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	target := c.resolve(path, spec.Query)
	op := operationName(spec.Method, path)
	start := time.Now()

	err := c.withRetry(ctx, op, retries, func(attempt int) error {
		c.logger.Debug("chat api request",
			zap.String("method", spec.Method),
			zap.String("url", target),
			zap.Int("attempt", attempt),
		)
		return c.attempt(ctx, spec, target, body, timeout, handle)
	})

	c.metrics.Requests.WithLabelValues(op, outcome(err)).Inc()
	c.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

// withRetry calls fn until it succeeds, fails with a non-retryable error, or
// runs out of retries. The delay before retry n is backoffBase * 2^n.
func (c *Client) withRetry(ctx context.Context, op string, retries int, fn func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		if attempt >= retries || !IsRetryable(err) {
			return err
		}

		delay := c.backoffBase << attempt
		c.logger.Warn("retrying chat api request",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		c.metrics.Retries.WithLabelValues(op).Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// attempt performs one HTTP exchange under its own deadline.
func (c *Client) attempt(ctx context.Context, spec RequestSpec, target string, body []byte, timeout time.Duration, handle handleFunc) error {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(actx, spec.Method, target, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	if err := c.setHeaders(ctx, req, spec.Header); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.classify(ctx, actx, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			Status:  resp.StatusCode,
			Message: BuildErrorMessage(raw, resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	if err := handle(actx, resp); err != nil {
		return c.classify(ctx, actx, timeout, err)
	}
	return nil
}

// classify maps a transport or body read failure onto the error taxonomy.
// Errors that are already typed pass through.
func (c *Client) classify(parent, actx context.Context, timeout time.Duration, err error) error {
	var (
		malformed *MalformedResponseError
		validate  *ValidationError
		httpErr   *HTTPError
	)
	if errors.As(err, &malformed) || errors.As(err, &validate) || errors.As(err, &httpErr) || isStreamError(err) {
		return err
	}

	if errors.Is(actx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Timeout: timeout, Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Timeout: timeout, Err: err}
	}

	if parent.Err() != nil {
		return parent.Err()
	}

	return &NetworkError{Err: err}
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, extra http.Header) error {
	req.Header.Set("Content-Type", "application/json")

	clientID, err := c.clientID(ctx)
	if err != nil {
		return fmt.Errorf("resolving client id: %w", err)
	}
	req.Header.Set(ClientIDHeader, clientID)

	for k, vals := range extra {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return nil
}

// clientID returns the persistent id, or a per-client random id when no
// source is configured.
func (c *Client) clientID(ctx context.Context) (string, error) {
	if c.identity != nil {
		return c.identity.ClientID(ctx)
	}

	c.fallbackOnce.Do(func() {
		c.fallbackID = uuid.NewString()
	})
	return c.fallbackID, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// operationName is the metrics label for a request, e.g. "POST /v2/chat".
func operationName(method, path string) string {
	return method + " " + path
}
