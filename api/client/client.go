// Package client provides the REST plumbing shared by every collector
// client: permissive host parsing, functional options, typed non-2xx
// errors, leaky-bucket rate limiting, and retry with exponential backoff.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/crypto/rand"
	"github.com/byzantron-research/aibyz-dataset/runtime/version"
	leakybucket "github.com/kevinms/leakybucket-go"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Client is a wrapper object around the HTTP client.
type Client struct {
	hc         *http.Client
	baseURL    *url.URL
	token      string
	limiter    *leakybucket.LeakyBucket
	maxRetries uint64
}

// NewClient constructs a new client with the provided options (ex WithTimeout).
// `host` is the base host + port used to construct request urls. This value can be
// a URL string, or NewClient will assume an http endpoint if just `host:port` is used.
func NewClient(host string, opts ...ClientOpt) (*Client, error) {
	u, err := urlForHost(host)
	if err != nil {
		return nil, err
	}
	c := &Client{
		hc:         &http.Client{Timeout: params.DatasetSpec().HTTPTimeout},
		baseURL:    u,
		maxRetries: params.DatasetSpec().MaxRetries,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func urlForHost(h string) (*url.URL, error) {
	// try to parse as url (being permissive)
	u, err := url.Parse(h)
	if err == nil && u.Host != "" {
		return u, nil
	}
	// try to parse as host:port
	host, port, err := net.SplitHostPort(h)
	if err != nil {
		return nil, ErrMalformedHostname
	}
	return &url.URL{Host: net.JoinHostPort(host, port), Scheme: "http"}, nil
}

// Token returns the token used for API authentication.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the base url of the client.
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

// NodeURL returns a human-readable string representation of the API host base url.
func (c *Client) NodeURL() string {
	return c.baseURL.String()
}

// Do executes the request against the http client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.hc.Do(req)
}

// Get is a generic, opinionated GET function to reduce boilerplate amongst the
// collector clients in this module. Transient upstream failures (429, 5xx) are
// retried with exponential backoff, honoring Retry-After when present.
func (c *Client) Get(ctx context.Context, path string, opts ...ReqOption) ([]byte, error) {
	ctx, span := trace.StartSpan(ctx, "client.Get")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("path", path))

	var body []byte
	var err error
	for attempt := uint64(0); ; attempt++ {
		if waitErr := c.waitForBucket(ctx); waitErr != nil {
			return nil, waitErr
		}
		body, err = c.getOnce(ctx, path, opts...)
		if err == nil || !retryable(err) || attempt >= c.maxRetries {
			break
		}
		delay := c.backoff(err, attempt)
		log.WithError(err).WithField("path", path).WithField("delay", delay).Debug("Retrying request")
		requestRetries.Inc()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON issues Get and unmarshals the response body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v interface{}, opts ...ReqOption) error {
	body, err := c.Get(ctx, path, opts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(err, "could not decode response body from %s", path)
	}
	return nil
}

func (c *Client) getOnce(ctx context.Context, path string, opts ...ReqOption) ([]byte, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fmt.Sprintf("aibyz-dataset/%s", version.SemanticVersion))
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	for _, o := range opts {
		o(req)
	}
	r, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.WithError(err).Debug("Could not close response body")
		}
	}()
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return nil, Non200Err(r)
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading http response body")
	}
	return b, nil
}

// waitForBucket blocks until the rate limiter admits one more request.
func (c *Client) waitForBucket(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	for c.limiter.Add(1) != 1 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.limiter.TillEmpty()):
		}
	}
	return nil
}

// backoff computes the wait before the next attempt: exponential growth from
// the configured base, capped, with up to 50% jitter. A server-provided
// Retry-After wins when it is longer.
func (c *Client) backoff(err error, attempt uint64) time.Duration {
	cfg := params.DatasetSpec()
	delay := cfg.RetryBaseDelay << attempt
	if delay > cfg.RetryMaxDelay || delay <= 0 {
		delay = cfg.RetryMaxDelay
	}
	delay += time.Duration(rand.NewGenerator().Int63n(int64(delay)/2 + 1))
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > delay {
		delay = httpErr.RetryAfter
	}
	return delay
}
