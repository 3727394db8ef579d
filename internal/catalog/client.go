package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/popcorn/internal/domain"
)

const maxResponseBody = 1 << 20 // 1 MiB

// Searcher runs title searches against the catalog.
type Searcher interface {
	Search(ctx context.Context, title string) ([]domain.SearchResult, error)
}

// Looker fetches a single movie by identifier.
type Looker interface {
	Lookup(ctx context.Context, id string) (domain.MovieDetail, error)
}

// Client is the full catalog contract used by the controllers.
type Client interface {
	Searcher
	Looker
}

// HTTPClient implements Client against an OMDb-compatible HTTP API.
type HTTPClient struct {
	baseURL  *url.URL
	apiKey   string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	validate *validator.Validate
	lookups  singleflight.Group
	logger   *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRateLimit throttles outbound requests. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPClient constructs a catalog client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*HTTPClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("catalog api key required")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("catalog url %q must be absolute", baseURL)
	}
	c := &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		validate: validator.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search looks up movies whose title contains the given text. Results keep
// the order the catalog returned them in.
func (c *HTTPClient) Search(ctx context.Context, title string) ([]domain.SearchResult, error) {
	const op = "search"
	var payload searchPayload
	if err := c.get(ctx, op, url.Values{"s": {title}}, &payload); err != nil {
		return nil, err
	}
	if err := checkResponse(op, payload.Response, payload.Error); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(payload); err != nil {
		return nil, malformed(op, err)
	}
	return convertSearch(payload), nil
}

// Lookup fetches the detail record for id. Concurrent lookups of the same id
// share one upstream request. The shared request is bounded by the client
// timeout rather than any one caller's ctx; each caller stops waiting when its
// own ctx ends.
func (c *HTTPClient) Lookup(ctx context.Context, id string) (domain.MovieDetail, error) {
	id = strings.TrimSpace(id)
	ch := c.lookups.DoChan(id, func() (any, error) {
		shared, cancel := c.detach(ctx)
		defer cancel()
		return c.lookup(shared, id)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.MovieDetail{}, res.Err
		}
		return res.Val.(domain.MovieDetail), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return domain.MovieDetail{}, ErrCanceled
		}
		return domain.MovieDetail{}, network("lookup", 0, ctx.Err())
	}
}

func (c *HTTPClient) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *HTTPClient) lookup(ctx context.Context, id string) (domain.MovieDetail, error) {
	const op = "lookup"
	var payload detailPayload
	if err := c.get(ctx, op, url.Values{"i": {id}}, &payload); err != nil {
		return domain.MovieDetail{}, err
	}
	if err := checkResponse(op, payload.Response, payload.Error); err != nil {
		return domain.MovieDetail{}, err
	}
	if err := c.validate.Struct(payload); err != nil {
		return domain.MovieDetail{}, malformed(op, err)
	}
	return convertDetail(payload), nil
}

func (c *HTTPClient) get(ctx context.Context, op string, params url.Values, dst any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return ErrCanceled
			}
			return network(op, 0, err)
		}
	}

	endpoint := *c.baseURL
	q := endpoint.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	q.Set("apikey", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return network(op, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ErrCanceled
		}
		return network(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("catalog: unexpected status", "op", op, "status", resp.StatusCode)
		return network(op, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(dst); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ErrCanceled
		}
		return malformed(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// checkResponse treats anything but Response "True" as not found, including
// a missing flag.
func checkResponse(op, response, message string) error {
	if response == "True" {
		return nil
	}
	return notFound(op, message)
}
