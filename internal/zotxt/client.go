package zotxt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the zotxt endpoint served by the Zotero connector.
	DefaultBaseURL = "http://localhost:23119/zotxt"

	// DefaultTimeout bounds each items request.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the maximum number of requests per second.
	// zotxt runs inside the Zotero UI process, so bursts are kept small.
	DefaultRateLimit = 20.0

	// apiPathItems is the zotxt endpoint for item lookups.
	apiPathItems = "/items"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 16 << 20

	tracerName = "github.com/matsen/pandoc-zotxt/internal/zotxt"
)

// Client queries a zotxt server.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *zap.Logger
	tracer     trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the zotxt base URL (everything before /items).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the maximum requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a zotxt client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    DefaultBaseURL,
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// itemsURL builds the items query URL for a key. The key is query-escaped
// as UTF-8, with spaces encoded as '+'.
func (c *Client) itemsURL(keyType KeyType, key string) string {
	q := url.Values{}
	q.Set(string(keyType), key)
	return c.baseURL + apiPathItems + "?" + q.Encode()
}

// Fetch performs one items request and returns the first matching record.
func (c *Client) Fetch(ctx context.Context, keyType KeyType, key string) (rec Record, err error) {
	ctx, span := c.tracer.Start(ctx, "zotxt.Fetch", trace.WithAttributes(
		attribute.String("zotxt.key_type", string(keyType)),
		attribute.String("zotxt.key", key),
	))
	defer func() {
		if err != nil && !IsNotFound(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.itemsURL(keyType, key), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	return decodeItems(io.LimitReader(resp.Body, maxResponseBytes))
}

// Lookup is Fetch with every failure collapsed to NotFound.
// Failures other than a plain miss are reported to the logger.
func (c *Client) Lookup(ctx context.Context, keyType KeyType, key string) Outcome {
	rec, err := c.Fetch(ctx, keyType, key)
	if err == nil {
		return Matched(rec)
	}

	fields := []zap.Field{
		zap.String("key", key),
		zap.String("key_type", string(keyType)),
		zap.Error(err),
	}
	if IsNotFound(err) {
		c.logger.Debug("no match", fields...)
	} else {
		c.logger.Warn("lookup failed", fields...)
	}
	return NotFound()
}

// checkHTTPErrors maps non-2xx responses to errors. zotxt answers 400 for
// keys it cannot find, so 400 and 404 both count as a miss.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg := formatErrorBody(resp.Body)
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: status %d: %s", ErrNotFound, resp.StatusCode, msg)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// formatErrorBody reads a short error body for diagnostics.
func formatErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 1024))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(data)
}

// decodeItems parses an items response and returns its first element.
func decodeItems(body io.Reader) (Record, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: expected array, got %s", ErrInvalidResponse, typeErr.Value)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	first := json.NewDecoder(bytes.NewReader(items[0]))
	first.UseNumber()
	var rec Record
	if err := first.Decode(&rec); err != nil || rec == nil {
		return nil, fmt.Errorf("%w: first item is not an object", ErrInvalidResponse)
	}
	return rec, nil
}
