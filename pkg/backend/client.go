// Package backend is the HTTP client for the search server: index fill,
// ranked results, history append, auth and configuration endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bastiangx/educate/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is where the search server listens by default.
	DefaultBaseURL = "http://localhost:9797"
	// DefaultResultsTimeout bounds the ranked-results call, which can crawl.
	DefaultResultsTimeout = 5 * time.Minute
)

// Options configures a Client. Zero values pick the defaults.
type Options struct {
	BaseURL        string
	ResultsTimeout time.Duration
	// RateLimit caps outbound requests per second; 0 means unlimited.
	RateLimit  float64
	Burst      int
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to the search server. Requests are never retried.
type Client struct {
	baseURL        string
	resultsTimeout time.Duration
	http           *retryablehttp.Client
	limiter        *rate.Limiter
	logger         *log.Logger
}

// New builds a Client from opts.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.ResultsTimeout
	if timeout <= 0 {
		timeout = DefaultResultsTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	l := logger.OrDefault(opts.Logger, "backend")
	return &Client{
		baseURL:        base,
		resultsTimeout: timeout,
		http: &retryablehttp.Client{
			HTTPClient:   hc,
			Logger:       leveled{l},
			RetryMax:     0,
			CheckRetry:   noRetry,
			Backoff:      retryablehttp.DefaultBackoff,
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  l,
	}
}

// BaseURL returns the server root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	return false, ctx.Err()
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, url string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: url, Status: resp.StatusCode, Err: err}
	}
	c.logger.Debug("request done", "op", op, "status", resp.StatusCode, "bytes", len(data), "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Op:     op,
			URL:    url,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(data))),
		}
	}
	return data, nil
}

// postJSON posts in and decodes the response into out. A 2xx response with
// no body is an EmptyResponseError when out is non-nil.
func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	url := c.baseURL + path
	data, err := c.do(ctx, op, http.MethodPost, url, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if isEmpty(data) {
		return &EmptyResponseError{Op: op, URL: url}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func isEmpty(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}

// leveled adapts a charm logger to retryablehttp.LeveledLogger.
type leveled struct {
	l *log.Logger
}

var _ retryablehttp.LeveledLogger = leveled{}

func (a leveled) Error(msg string, kv ...interface{}) { a.l.Error(msg, kv...) }
func (a leveled) Warn(msg string, kv ...interface{})  { a.l.Warn(msg, kv...) }
func (a leveled) Info(msg string, kv ...interface{})  { a.l.Debug(msg, kv...) }
func (a leveled) Debug(msg string, kv ...interface{}) { a.l.Debug(msg, kv...) }
