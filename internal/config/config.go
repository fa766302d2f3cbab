package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Alias1177/Predictor/internal/analysis/market"
	"github.com/Alias1177/Predictor/internal/decision"
	"github.com/Alias1177/Predictor/internal/platform/validate"
	"github.com/Alias1177/Predictor/internal/signal"
	"github.com/Alias1177/Predictor/internal/trading/backtest"
	"github.com/Alias1177/Predictor/internal/trading/risk"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = validate.ErrInvalidConfig

// Config holds all application configuration
type Config struct {
	TwelveAPIKey        string        `env:"TWELVE_API_KEY"`
	Symbol              string        `env:"SYMBOL" envDefault:"XAU/USD" validate:"required"`
	Interval            string        `env:"INTERVAL" envDefault:"1h" validate:"required"`
	CandleCount         int           `env:"CANDLE_COUNT" envDefault:"1000" validate:"gte=1,lte=5000"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=console json"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	RequestsPerSec      int           `env:"REQUESTS_PER_SEC" envDefault:"5" validate:"gt=0"`
	InitialCapital      float64       `env:"INITIAL_CAPITAL" envDefault:"10000" validate:"gt=0"`
	Commission          float64       `env:"COMMISSION" envDefault:"0" validate:"gte=0"`
	RiskGated           bool          `env:"RISK_GATED" envDefault:"false"`
	RiskProfilePath     string        `env:"RISK_PROFILE_PATH"`
	DatabaseURL         string        `env:"DATABASE_URL"`
	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID      int64         `env:"TELEGRAM_CHAT_ID"`
	CacheTTL            time.Duration `env:"CACHE_TTL" envDefault:"5m" validate:"gte=0"`
	RegimeLookback      int           `env:"REGIME_LOOKBACK" envDefault:"100" validate:"gt=0"`
	MinRegimeConfidence float64       `env:"MIN_REGIME_CONFIDENCE" envDefault:"0.6" validate:"gte=0,lte=1"`
}

// RiskProfile groups the risk and aggregation tunables that may be overridden from YAML
type RiskProfile struct {
	Risk       risk.Config             `yaml:"risk"`
	Meta       decision.MetaConfig     `yaml:"meta"`
	Thresholds decision.Thresholds     `yaml:"thresholds"`
	Regime     market.DetectorConfig   `yaml:"regime"`
	Technical  signal.TechnicalConfig  `yaml:"technical"`
	Adaptive   backtest.AdaptiveConfig `yaml:"adaptive"`
}

// DefaultRiskProfile returns the built-in tunables
func DefaultRiskProfile() RiskProfile {
	return RiskProfile{
		Risk:       risk.DefaultConfig(),
		Meta:       decision.DefaultMetaConfig(),
		Thresholds: decision.DefaultThresholds(),
		Regime:     market.DefaultDetectorConfig(),
		Technical:  signal.DefaultTechnicalConfig(),
		Adaptive:   backtest.DefaultAdaptiveConfig(),
	}
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.Symbol = getEnvWithDefault("SYMBOL", "XAU/USD")
	cfg.Interval = getEnvWithDefault("INTERVAL", "1h")
	cfg.CandleCount = getEnvIntWithDefault("CANDLE_COUNT", 1000)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", "console")
	cfg.RequestTimeout = getEnvDurationWithDefault("REQUEST_TIMEOUT", 30*time.Second)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.InitialCapital = getEnvFloatWithDefault("INITIAL_CAPITAL", 10000)
	cfg.Commission = getEnvFloatWithDefault("COMMISSION", 0)
	cfg.RiskGated = getEnvBoolWithDefault("RISK_GATED", false)
	cfg.RiskProfilePath = os.Getenv("RISK_PROFILE_PATH")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = int64(getEnvIntWithDefault("TELEGRAM_CHAT_ID", 0))
	cfg.CacheTTL = getEnvDurationWithDefault("CACHE_TTL", 5*time.Minute)
	cfg.RegimeLookback = getEnvIntWithDefault("REGIME_LOOKBACK", 100)
	cfg.MinRegimeConfidence = getEnvFloatWithDefault("MIN_REGIME_CONFIDENCE", 0.6)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// LoadRiskProfile overlays the YAML file at path onto the built-in defaults.
// An empty path returns the defaults.
func LoadRiskProfile(path string) (RiskProfile, error) {
	profile := DefaultRiskProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RiskProfile{}, fmt.Errorf("failed to read risk profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return RiskProfile{}, fmt.Errorf("failed to parse risk profile %s: %w", path, err)
	}
	if err := validate.Struct(profile); err != nil {
		return RiskProfile{}, fmt.Errorf("risk profile %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("Risk profile loaded")
	return profile, nil
}

// Adaptive returns the adaptive engine settings with the env overrides applied
func (c *Config) Adaptive(profile RiskProfile) backtest.AdaptiveConfig {
	a := profile.Adaptive
	a.Lookback = c.RegimeLookback
	a.MinConfidence = c.MinRegimeConfidence
	a.InitialCapital = c.InitialCapital
	a.Commission = c.Commission
	return a
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDurationWithDefault accepts Go durations ("45s") or bare seconds ("45")
func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
