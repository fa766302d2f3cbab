package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "meta": {"symbol": "XAU/USD", "interval": "1h"},
  "values": [
    {"datetime": "2024-01-01 02:00:00", "open": "2063.1", "high": "2065.0", "low": "2062.0", "close": "2064.5", "volume": "1200"},
    {"datetime": "2024-01-01 01:00:00", "open": "2061.0", "high": "2063.5", "low": "2060.2", "close": "2063.1", "volume": "900"},
    {"datetime": "2024-01-01 00:00:00", "open": "2060.0", "high": "2061.8", "low": "2059.1", "close": "2061.0"}
  ],
  "status": "ok"
}`

func newTestClient(t *testing.T, body string, ttl time.Duration) (*Client, *int32, *atomic.Value) {
	var hits int32
	var lastQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		lastQuery.Store(r.URL.RawQuery)
		assert.Equal(t, "/time_series", r.URL.Path)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientOptions{APIKey: "test-key", BaseURL: srv.URL, CacheTTL: ttl})
	return c, &hits, &lastQuery
}

func TestGetCandles(t *testing.T) {
	c, _, query := newTestClient(t, sampleResponse, 0)

	candles, err := c.GetCandles(context.Background(), "XAU/USD", "1h", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), candles[0].Datetime)
	assert.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC), candles[2].Datetime)
	assert.Equal(t, 2061.0, candles[0].Close)
	assert.Equal(t, int64(0), candles[0].Volume)
	assert.Equal(t, int64(1200), candles[2].Volume)

	raw := query.Load().(string)
	assert.Contains(t, raw, "symbol=XAU%2FUSD")
	assert.Contains(t, raw, "outputsize=3")
	assert.Contains(t, raw, "timezone=UTC")
	assert.Contains(t, raw, "apikey=test-key")
}

func TestGetCandlesCache(t *testing.T) {
	c, hits, _ := newTestClient(t, sampleResponse, time.Minute)

	first, err := c.GetCandles(context.Background(), "XAU/USD", "1h", 3)
	require.NoError(t, err)
	first[0].Close = 0

	second, err := c.GetCandles(context.Background(), "XAU/USD", "1h", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, 2061.0, second[0].Close)

	_, err = c.GetCandles(context.Background(), "XAU/USD", "4h", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestGetCandlesErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "api error payload",
			body: `{"code": 401, "message": "invalid api key", "status": "error"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, 401, apiErr.Code)
			},
		},
		{
			name: "no values",
			body: `{"meta": {}, "values": [], "status": "ok"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyData)
			},
		},
		{
			name: "bad timestamp",
			body: `{"values": [{"datetime": "01/02/2024", "open": "1", "high": "1", "low": "1", "close": "1"}], "status": "ok"}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "unrecognized datetime")
			},
		},
		{
			name: "malformed json",
			body: `{"values": [`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "parsing JSON")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestClient(t, tt.body, time.Minute)
			_, err := c.GetCandles(context.Background(), "XAU/USD", "1h", 3)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGetSeries(t *testing.T) {
	c, _, _ := newTestClient(t, sampleResponse, 0)
	series, err := c.GetSeries(context.Background(), "XAU/USD", "1h", 3)
	require.NoError(t, err)
	assert.Equal(t, "XAU/USD", series.Symbol)
	assert.Equal(t, "1h", series.Interval)
	assert.Equal(t, 3, series.Len())
}

func TestGetHistoricalCandlesRejectsUnknownInterval(t *testing.T) {
	c, hits, _ := newTestClient(t, sampleResponse, 0)
	_, err := c.GetHistoricalCandles(context.Background(), "XAU/USD", "3min", 5)
	assert.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestParseDatetime(t *testing.T) {
	ts, err := parseDatetime("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), ts)

	ts, err = parseDatetime("2024-03-05 13:45:00")
	require.NoError(t, err)
	assert.Equal(t, 13, ts.Hour())
}

func TestCalculateCandlesForBacktest(t *testing.T) {
	tests := []struct {
		interval string
		days     int
		expected int
	}{
		{"1h", 10, 264},
		{"5min", 1, 316},
		{"1day", 30, 33},
		{"1week", 3, 1},
		{"3min", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateCandlesForBacktest(tt.interval, tt.days))
		})
	}
}
