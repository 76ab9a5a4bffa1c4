package client

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ErrMalformedHostname is returned when the host given to NewClient cannot
// be parsed as a URL or a host:port pair.
var ErrMalformedHostname = errors.New("hostname must include port, separated by one colon, like example.com:3500")

// ErrNotFound specifically means that a '404 - NOT FOUND' response was
// received from the API. Empty slots surface as ErrNotFound and are not
// retried.
var ErrNotFound = errors.New("recv 404 NotFound response from API")

// maxBodySnippet caps how much of an error response body is carried inside
// an HTTPError.
const maxBodySnippet = 1024

// HTTPError describes a non-2xx response. RetryAfter carries the parsed
// Retry-After header when the server provided one.
type HTTPError struct {
	Code       int
	Body       []byte
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s, body: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Non200Err is a function that parses an HTTP response to handle responses
// that are not 200 with a formatted error.
func Non200Err(response *http.Response) error {
	bodyBytes, err := io.ReadAll(io.LimitReader(response.Body, maxBodySnippet))
	if err != nil {
		bodyBytes = []byte("could not read response body")
	}
	switch response.StatusCode {
	case http.StatusNotFound:
		return errors.Wrapf(ErrNotFound, "url=%s, body=%s", response.Request.URL, bodyBytes)
	default:
		httpErr := &HTTPError{Code: response.StatusCode, Body: bodyBytes}
		if ra := response.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.ParseUint(ra, 10, 32); err == nil {
				httpErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return httpErr
	}
}

// retryable reports whether the request that produced err may be retried.
// Rate limiting and server-side failures are transient; everything else is
// handed back to the caller as-is.
func retryable(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.Code == http.StatusTooManyRequests || httpErr.Code >= 500
}
