package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/Alias1177/Predictor/internal/model"
	httpClient "github.com/Alias1177/Predictor/internal/platform/http"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	maxOutputSize  = 5000
)

// ErrEmptyData is returned when the API answers without candles
var ErrEmptyData = errors.New("empty data returned")

// APIError is an error payload returned by Twelve Data with a 200 status
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Twelve Data API error %d: %s", e.Code, e.Message)
}

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	cache      *cache.Cache
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
	CacheTTL        time.Duration // 0 disables caching
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	// Apply defaults if not set
	if httpOpts.Timeout == 0 {
		httpOpts.Timeout = 30 * time.Second
	}
	if httpOpts.RequestsPerSec == 0 {
		httpOpts.RequestsPerSec = 5
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &Client{
		apiKey:     options.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "twelvedata_client").Logger(),
	}
	if options.CacheTTL > 0 {
		c.cache = cache.New(options.CacheTTL, 2*options.CacheTTL)
	}
	return c
}

// GetCandles fetches candle data from Twelve Data API, oldest first
func (c *Client) GetCandles(ctx context.Context, symbol string, interval string, count int) ([]model.Candle, error) {
	key := cacheKey(symbol, interval, count)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			c.logger.Debug().Str("key", key).Msg("Candle cache hit")
			return cloneCandles(cached.([]model.Candle)), nil
		}
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("outputsize", strconv.Itoa(count))
	query.Set("timezone", "UTC")
	query.Set("apikey", c.apiKey)

	endpoint := c.baseURL + "/time_series?" + query.Encode()
	c.logger.Debug().Str("symbol", symbol).Str("interval", interval).Int("count", count).Msg("Fetching candles")

	// Create a new request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	candles, err := parseTimeSeries(body)
	if err != nil {
		c.logger.Error().Err(err).Str("symbol", symbol).Msg("Twelve Data response rejected")
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(key, cloneCandles(candles), cache.DefaultExpiration)
	}

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

// GetSeries fetches candles and wraps them as a series
func (c *Client) GetSeries(ctx context.Context, symbol string, interval string, count int) (model.Series, error) {
	candles, err := c.GetCandles(ctx, symbol, interval, count)
	if err != nil {
		return model.Series{}, err
	}
	return model.Series{Symbol: symbol, Interval: interval, Candles: candles}, nil
}

// GetHistoricalCandles fetches enough candles to cover the given number of days
func (c *Client) GetHistoricalCandles(ctx context.Context, symbol string, interval string, days int) ([]model.Candle, error) {
	count := calculateCandlesForBacktest(interval, days)
	if count < 1 {
		return nil, fmt.Errorf("unsupported interval %q", interval)
	}
	if count > maxOutputSize {
		c.logger.Warn().Int("requested", count).Int("max", maxOutputSize).Msg("Historical window truncated")
		count = maxOutputSize
	}

	return c.GetCandles(ctx, symbol, interval, count)
}

func parseTimeSeries(body []byte) ([]model.Candle, error) {
	var data model.TwelveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if data.Status == "error" {
		return nil, &APIError{Code: data.Code, Message: data.Message}
	}
	if len(data.Values) == 0 {
		return nil, ErrEmptyData
	}

	candles := make([]model.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		ts, err := parseDatetime(v.Datetime)
		if err != nil {
			return nil, err
		}
		candles = append(candles, model.Candle{
			Datetime: ts,
			Open:     v.Open,
			High:     v.High,
			Low:      v.Low,
			Close:    v.Close,
			Volume:   v.Volume,
		})
	}

	// Sort candles by datetime (oldest first for proper calculations)
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Datetime.Before(candles[j].Datetime)
	})
	return candles, nil
}

// parseDatetime accepts intraday and daily timestamps, interpreted as UTC
func parseDatetime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

func cacheKey(symbol, interval string, count int) string {
	return symbol + "|" + interval + "|" + strconv.Itoa(count)
}

func cloneCandles(candles []model.Candle) []model.Candle {
	out := make([]model.Candle, len(candles))
	copy(out, candles)
	return out
}

// calculateCandlesForBacktest estimates how many candles are needed for backtesting
func calculateCandlesForBacktest(interval string, days int) int {
	candlesPerDay := 0

	switch interval {
	case "1min":
		candlesPerDay = 24 * 60
	case "5min":
		candlesPerDay = 24 * 12
	case "15min":
		candlesPerDay = 24 * 4
	case "30min":
		candlesPerDay = 24 * 2
	case "45min":
		candlesPerDay = 24 * 60 / 45
	case "1h":
		candlesPerDay = 24
	case "2h":
		candlesPerDay = 12
	case "4h":
		candlesPerDay = 6
	case "8h":
		candlesPerDay = 3
	case "1day":
		candlesPerDay = 1
	case "1week":
		candlesPerDay = 1
		days = days / 7
		if days < 1 {
			days = 1
		}
	case "1month":
		candlesPerDay = 1
		days = days / 30
		if days < 1 {
			days = 1
		}
	}

	// Calculate the number of candles for the specified days and add a buffer
	return int(float64(candlesPerDay) * float64(days) * 1.1)
}
