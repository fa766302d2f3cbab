package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(hit int32, w http.ResponseWriter)) (*httptest.Server, *int32) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(atomic.AddInt32(&hits, 1), w)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func get(t *testing.T, c *Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	return c.DoRequest(context.Background(), req)
}

func TestDoRequestSuccess(t *testing.T) {
	srv, hits := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	resp, err := get(t, NewClient(ClientOptions{}), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	srv, hits := newTestServer(t, func(hit int32, w http.ResponseWriter) {
		if hit < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	resp, err := get(t, NewClient(ClientOptions{MaxRetryTimeout: 10 * time.Second}), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestDoRequestDoesNotRetryClientErrors(t *testing.T) {
	srv, hits := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := get(t, NewClient(ClientOptions{}), srv.URL)
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestDoRequestStopsAfterMaxRetries(t *testing.T) {
	srv, hits := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := get(t, NewClient(ClientOptions{MaxRetries: 2}), srv.URL)
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestHTTPStatusErrorPermanent(t *testing.T) {
	tests := []struct {
		code      int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.permanent, (&HTTPStatusError{StatusCode: tt.code}).Permanent())
		})
	}
}
