package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
	"github.com/pkg/errors"
)

func TestNewClient(t *testing.T) {
	cases := []struct {
		name string
		host string
		err  string
	}{
		{
			name: "host and port",
			host: "localhost:3500",
		},
		{
			name: "scheme, host and port",
			host: "http://localhost:3500",
		},
		{
			name: "https scheme, host and port",
			host: "https://localhost:3500",
		},
		{
			name: "no port",
			host: "localhost",
			err:  "hostname must include port",
		},
		{
			name: "space in hostname",
			host: "local host:3500",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cl, err := NewClient(c.host)
			if c.err != "" {
				require.ErrorContains(t, c.err, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cl.BaseURL())
		})
	}
}

func TestGetSetsUserAgentAndAuth(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL, WithAuthenticationToken("sekrit"))
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), "/whatever")
	require.NoError(t, err)
	assert.Equal(t, true, len(gotUA) > 0 && gotUA[:13] == "aibyz-dataset")
	assert.Equal(t, "Bearer sekrit", gotAuth)
}

func TestGetRetriesOn429ThenSucceeds(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL)
	require.NoError(t, err)
	body, err := cl.Get(context.Background(), "/data")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 2, calls)
}

func TestGetExhaustsRetriesOn5xx(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), "/data")
	require.NotNil(t, err)
	var httpErr *HTTPError
	require.Equal(t, true, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.Code)
	// initial attempt + MaxRetries retries
	assert.Equal(t, int(params.DatasetSpec().MaxRetries)+1, calls)
}

func TestGet404MapsToErrNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no block for slot", http.StatusNotFound)
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), "/eth/v2/beacon/blocks/12345")
	require.Equal(t, true, errors.Is(err, ErrNotFound))
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"slot":"123"}}`)
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL)
	require.NoError(t, err)
	var out struct {
		Data struct {
			Slot string `json:"slot"`
		} `json:"data"`
	}
	require.NoError(t, cl.GetJSON(context.Background(), "/x", &out))
	assert.Equal(t, "123", out.Data.Slot)
}

func TestReqOptions(t *testing.T) {
	var gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("pagination.key")
		gotHeader = r.Header.Get("apikey")
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	cl, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), "/v", WithQuery("pagination.key", "abc"), WithHeader("apikey", "k"))
	require.NoError(t, err)
	assert.Equal(t, "abc", gotQuery)
	assert.Equal(t, "k", gotHeader)
}
