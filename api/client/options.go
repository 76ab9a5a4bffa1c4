package client

import (
	"fmt"
	"net/http"
	"time"

	leakybucket "github.com/kevinms/leakybucket-go"
)

// ReqOption is a request functional option.
type ReqOption func(*http.Request)

// WithQuery adds a query parameter to the request URL.
func WithQuery(key, value string) ReqOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Add(key, value)
		req.URL.RawQuery = q.Encode()
	}
}

// WithHeader sets a header on the request.
func WithHeader(key, value string) ReqOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// WithTokenAuthorization sets the bearer-style Authorization header.
func WithTokenAuthorization(token string) ReqOption {
	return func(req *http.Request) {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
}

// ClientOpt is a functional option for the Client type (http.Client wrapper).
type ClientOpt func(*Client)

// WithTimeout sets the .Timeout attribute of the wrapped http.Client.
func WithTimeout(timeout time.Duration) ClientOpt {
	return func(c *Client) {
		c.hc.Timeout = timeout
	}
}

// WithCustomTransport replaces the underlying http's transport with a custom one.
func WithCustomTransport(t http.RoundTripper) ClientOpt {
	return func(c *Client) {
		c.hc.Transport = t
	}
}

// WithAuthenticationToken sets an API token. The token is attached to every
// request through the Authorization header.
func WithAuthenticationToken(token string) ClientOpt {
	return func(c *Client) {
		c.token = token
	}
}

// WithMaxRetries overrides how many times a failed request is retried with
// exponential backoff. Only 429 and 5xx responses are retried.
func WithMaxRetries(retries uint64) ClientOpt {
	return func(c *Client) {
		c.maxRetries = retries
	}
}

// WithRateLimit throttles outgoing requests through a leaky bucket. Rate
// limited API tiers (the beaconcha.in free tier) need this to stay under
// their per-minute budget.
func WithRateLimit(perSecond float64, capacity int64) ClientOpt {
	return func(c *Client) {
		c.limiter = leakybucket.NewLeakyBucket(perSecond, capacity)
	}
}
