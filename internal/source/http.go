package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/ordercast/ordercast/internal/model"
)

// Provider fetches the current full dataset from one upstream owner.
type Provider interface {
	// Fetch returns the complete ordered sequence of orders, or an
	// *UpstreamError. The caller bounds the call with a deadline context.
	Fetch(ctx context.Context) ([]model.Order, error)

	// Name identifies the provider in logs and errors.
	Name() string
}

// HTTPProvider reads orders from a JSON endpoint (the spreadsheet-backed
// macro endpoint in the original deployment).
type HTTPProvider struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// NewHTTPProvider creates a provider for a single endpoint.
func NewHTTPProvider(endpoint string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.httpClient = hc
	}
}

// WithRetries sets the retry configuration for transport failures.
func WithRetries(max int, backoff time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.maxRetries = max
		p.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(p *HTTPProvider) {
		p.logger = logger
	}
}

// Name implements Provider.
func (p *HTTPProvider) Name() string {
	if u, err := url.Parse(p.endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return p.endpoint
}

// Fetch implements Provider.
func (p *HTTPProvider) Fetch(ctx context.Context) ([]model.Order, error) {
	body, err := p.getWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := parseOrders(body)
	if err != nil {
		return nil, malformedErr(p.Name(), err)
	}
	return orders, nil
}

// getWithRetry performs the GET with jittered backoff on retryable
// failures. Malformed payloads are not retried: the same bytes would
// come back.
func (p *HTTPProvider) getWithRetry(ctx context.Context) ([]byte, error) {
	var lastErr error
	backoff := p.retryBackoff

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			p.logger.Debug("retrying upstream fetch",
				"attempt", attempt,
				"backoff", jitter,
				"endpoint", p.Name(),
			)
			select {
			case <-ctx.Done():
				return nil, classifyTransport(p.Name(), ctx.Err())
			case <-time.After(jitter):
			}
			backoff *= 2
		}

		body, err := p.get(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if IsTimeout(err) {
			// The cycle deadline expired; no time left for a retry.
			return nil, err
		}
	}

	return nil, lastErr
}

// get performs a single GET against the endpoint.
func (p *HTTPProvider) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, unavailableErr(p.Name(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(p.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(p.Name(), fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, unavailableErr(p.Name(),
			fmt.Errorf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	return body, nil
}
