package locality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrEmptyQuery    = errors.New("locality: query is required")
	ErrNotConfigured = errors.New("locality: upstream url or token not configured")
)

// UpstreamError is a non-2xx response, or a transport failure when StatusCode is 0.
type UpstreamError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("locality: upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("Australia Post API error: %s", e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transport reports whether the request never produced an HTTP response.
func (e *UpstreamError) Transport() bool { return e.StatusCode == 0 }

// UpstreamFormatError means the upstream answered 2xx with a body that is not the expected JSON.
type UpstreamFormatError struct {
	Err error
}

func (e *UpstreamFormatError) Error() string {
	return fmt.Sprintf("locality: invalid upstream response: %v", e.Err)
}

func (e *UpstreamFormatError) Unwrap() error { return e.Err }

// Lookuper searches localities by free text (postcode or suburb name) and optional state.
type Lookuper interface {
	Lookup(ctx context.Context, query, state string) ([]Location, error)
}

// Observer receives the outcome and latency of each upstream call.
type Observer interface {
	ObserveLookup(outcome string, d time.Duration)
}

// Lookup outcomes reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomeUpstream  = "upstream_error"
	OutcomeTransport = "transport_error"
	OutcomeFormat    = "format_error"
)

const maxBodyBytes = 1 << 20

// Client calls the postcode search endpoint with a bearer token. It never retries.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	observer   Observer
	now        func() time.Time
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSpace(baseURL),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.token != ""
}

// Lookup performs one GET against the upstream and returns the normalised records.
// An empty result is a success.
func (c *Client) Lookup(ctx context.Context, query, state string) ([]Location, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	params := url.Values{"q": {query}}
	if state != "" {
		params.Set("state", state)
	}
	fullURL := c.baseURL
	if strings.Contains(fullURL, "?") {
		fullURL += "&" + params.Encode()
	} else {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("locality: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := c.now()
	locs, outcome, err := c.do(req)
	if c.observer != nil {
		c.observer.ObserveLookup(outcome, c.now().Sub(start))
	}
	return locs, err
}

func (c *Client) do(req *http.Request) ([]Location, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, OutcomeTransport, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, OutcomeTransport, &UpstreamError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, OutcomeUpstream, &UpstreamError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	locs, err := decodeSearch(body)
	if err != nil {
		return nil, OutcomeFormat, err
	}
	return locs, OutcomeOK, nil
}
