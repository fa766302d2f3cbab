package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SYMBOL", "INTERVAL", "CANDLE_COUNT", "LOG_FORMAT", "REQUEST_TIMEOUT",
		"INITIAL_CAPITAL", "COMMISSION", "RISK_GATED", "CACHE_TTL", "REGIME_LOOKBACK", "MIN_REGIME_CONFIDENCE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "XAU/USD", cfg.Symbol)
	assert.Equal(t, "1h", cfg.Interval)
	assert.Equal(t, 1000, cfg.CandleCount)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10000.0, cfg.InitialCapital)
	assert.False(t, cfg.RiskGated)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.RegimeLookback)
	assert.Equal(t, 0.6, cfg.MinRegimeConfidence)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "EUR/USD")
	t.Setenv("CANDLE_COUNT", "500")
	t.Setenv("REQUEST_TIMEOUT", "45")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("COMMISSION", "1.5")
	t.Setenv("RISK_GATED", "yes")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234567890")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", cfg.Symbol)
	assert.Equal(t, 500, cfg.CandleCount)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 1.5, cfg.Commission)
	assert.True(t, cfg.RiskGated)
	assert.Equal(t, int64(-1001234567890), cfg.TelegramChatID)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"too many candles", "CANDLE_COUNT", "9000"},
		{"confidence above one", "MIN_REGIME_CONFIDENCE", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadRiskProfile(t *testing.T) {
	profile, err := LoadRiskProfile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRiskProfile(), profile)

	path := filepath.Join(t.TempDir(), "risk.yaml")
	yamlDoc := `
risk:
  risk_per_trade_pct: 0.5
  max_daily_trades: 5
meta:
  action_threshold: 0.4
regime:
  high_volatility_threshold: 3.0
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	profile, err = LoadRiskProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, profile.Risk.RiskPerTradePct)
	assert.Equal(t, 5, profile.Risk.MaxDailyTrades)
	assert.Equal(t, 0.4, profile.Meta.ActionThreshold)
	assert.Equal(t, 3.0, profile.Regime.HighVolatilityThreshold)

	// untouched keys keep their defaults
	defaults := DefaultRiskProfile()
	assert.Equal(t, defaults.Risk.MaxDrawdownPct, profile.Risk.MaxDrawdownPct)
	assert.Equal(t, defaults.Meta.TechnicalWeight, profile.Meta.TechnicalWeight)
	assert.Equal(t, defaults.Thresholds, profile.Thresholds)
	assert.Equal(t, defaults.Adaptive, profile.Adaptive)
}

func TestLoadRiskProfileErrors(t *testing.T) {
	_, err := LoadRiskProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("risk: [unclosed"), 0o600))
	_, err = LoadRiskProfile(bad)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("thresholds:\n  strong: 1.7\n"), 0o600))
	_, err = LoadRiskProfile(invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAdaptiveOverrides(t *testing.T) {
	cfg := &Config{RegimeLookback: 80, MinRegimeConfidence: 0.7, InitialCapital: 5000, Commission: 1}
	a := cfg.Adaptive(DefaultRiskProfile())
	assert.Equal(t, 80, a.Lookback)
	assert.Equal(t, 0.7, a.MinConfidence)
	assert.Equal(t, 5000.0, a.InitialCapital)
	assert.Equal(t, 1.0, a.Commission)
	assert.Equal(t, 10, a.Checkpoints)
}

func TestGetEnvDurationWithDefault(t *testing.T) {
	t.Setenv("TEST_DURATION", "not-a-duration")
	assert.Equal(t, time.Minute, getEnvDurationWithDefault("TEST_DURATION", time.Minute))
	t.Setenv("TEST_DURATION", "2m")
	assert.Equal(t, 2*time.Minute, getEnvDurationWithDefault("TEST_DURATION", time.Minute))
}
