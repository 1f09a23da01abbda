// Package classifyapi is the HTTP client for the classification service:
// POST /classify_text, POST /classify_image and GET / for health.
package classifyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	retry "github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/observability/metrics"
	"github.com/wolfman30/govsense/pkg/logging"
)

var tracer = otel.Tracer("govsense.internal.classifyapi")

const (
	EndpointText   = "classify_text"
	EndpointImage  = "classify_image"
	maxBodyBytes   = 4 << 20
	defaultTimeout = 60 * time.Second
)

// Client calls the classification service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries uint64
	retryBase  time.Duration
	metrics    *metrics.ClientMetrics
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each classification call, retries included. Zero
// disables the client-side deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry retries transport failures and 429/502/503/504 responses up to
// maxRetries times with exponential backoff starting at base.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(c *Client) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		c.maxRetries = uint64(maxRetries)
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithMetrics records request counts and latency on m.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger; nil keeps the default.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		retryBase:  500 * time.Millisecond,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyText posts {"text": text} to /classify_text.
func (c *Client) ClassifyText(ctx context.Context, text string) (*classification.Result, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("marshal request: %w", err)}
	}
	return c.classify(ctx, EndpointText, "application/json", body,
		attribute.Int("govsense.text_length", len(text)))
}

// ClassifyImage uploads data as the multipart field "file" to /classify_image.
func (c *Client) ClassifyImage(ctx context.Context, filename, contentType string, data []byte) (*classification.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename == "" {
		filename = "upload"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("build multipart: %w", err)}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("build multipart: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("build multipart: %w", err)}
	}
	return c.classify(ctx, EndpointImage, mw.FormDataContentType(), buf.Bytes(),
		attribute.Int("govsense.image_bytes", len(data)),
		attribute.String("govsense.image_type", contentType))
}

func (c *Client) classify(ctx context.Context, endpoint, contentType string, body []byte, attrs ...attribute.KeyValue) (*classification.Result, error) {
	ctx, span := tracer.Start(ctx, "classifyapi."+endpoint)
	defer span.End()
	span.SetAttributes(attrs...)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var result *classification.Result
	attempt := 0
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.metrics.ObserveRetry(endpoint)
			c.logger.Warn("retrying classification request", "endpoint", endpoint, "attempt", attempt)
		}
		r, err := c.post(ctx, endpoint, contentType, body)
		if err != nil {
			if retryable(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = r
		return nil
	})
	span.SetAttributes(attribute.Int("govsense.attempts", attempt))

	if err != nil {
		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			// retry.Do returns the context error when it gives up between attempts.
			svcErr = &ServiceError{Err: err}
		}
		c.metrics.ObserveRequest(endpoint, statusLabel(svcErr), time.Since(start).Seconds())
		span.RecordError(svcErr)
		span.SetStatus(codes.Error, svcErr.Error())
		c.logger.Error("classification request failed", "endpoint", endpoint, "status_code", svcErr.StatusCode, "error", svcErr)
		return nil, svcErr
	}
	c.metrics.ObserveRequest(endpoint, "ok", time.Since(start).Seconds())
	return result, nil
}

func (c *Client) post(ctx context.Context, endpoint, contentType string, body []byte) (*classification.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Detail: parseDetail(raw)}
	}

	var result classification.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode result: %w", err)}
	}
	if err := result.Validate(); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: err}
	}
	return &result, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	switch svcErr.StatusCode {
	case 0:
		return true
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func statusLabel(e *ServiceError) string {
	switch {
	case errors.Is(e, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(e, context.Canceled):
		return "canceled"
	case e.StatusCode >= 500:
		return "http_5xx"
	case e.StatusCode >= 400:
		return "http_4xx"
	case e.StatusCode != 0:
		return "decode"
	default:
		return "transport"
	}
}

// Health is the service's GET / payload.
type Health struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) (Health, error) {
	ctx, span := tracer.Start(ctx, "classifyapi.health")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return Health{}, &ServiceError{Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Health{}, &ServiceError{Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return Health{}, &ServiceError{StatusCode: resp.StatusCode, Detail: parseDetail(raw)}
	}
	var h Health
	if err := json.Unmarshal(raw, &h); err != nil {
		return Health{}, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode health: %w", err)}
	}
	return h, nil
}
