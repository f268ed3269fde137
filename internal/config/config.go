package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderLeadConnector = "leadconnector"
	ProviderGoogle        = "google"
)

type Config struct {
	Environment    string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RunMigrations  bool          `mapstructure:"RUN_MIGRATIONS"`
	Timezone       string        `mapstructure:"TIMEZONE"`
	RangeDays      int           `mapstructure:"RANGE_DAYS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	Provider                string `mapstructure:"PROVIDER"`
	LeadConnectorBaseURL    string `mapstructure:"LEADCONNECTOR_BASE_URL"`
	LeadConnectorAPIVersion string `mapstructure:"LEADCONNECTOR_API_VERSION"`

	OAuthClientID     string `mapstructure:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `mapstructure:"OAUTH_CLIENT_SECRET"`
	OAuthTokenURL     string `mapstructure:"OAUTH_TOKEN_URL"`
	OAuthRefreshToken string `mapstructure:"OAUTH_REFRESH_TOKEN"`
	// ProviderAccessToken skips the refresh flow entirely when set.
	ProviderAccessToken string `mapstructure:"PROVIDER_ACCESS_TOKEN"`

	GoogleSlotStep     time.Duration `mapstructure:"GOOGLE_SLOT_STEP"`
	GoogleSlotDuration time.Duration `mapstructure:"GOOGLE_SLOT_DURATION"`

	RetryMax       int           `mapstructure:"RETRY_MAX"`
	RetryBaseDelay time.Duration `mapstructure:"RETRY_BASE_DELAY"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	JWTSecret    string `mapstructure:"JWT_HMAC_SECRET"`
	StaticTokens string `mapstructure:"STATIC_TOKENS"`
	CORSOrigins  string `mapstructure:"CORS_ORIGINS"`

	OTelEnabled       bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint      string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRatio float64 `mapstructure:"OTEL_SAMPLING_RATIO"`
}

var defaults = map[string]any{
	"ENV":                         "development",
	"PORT":                        "8080",
	"DATABASE_URL":                "",
	"RUN_MIGRATIONS":              true,
	"TIMEZONE":                    "America/Denver",
	"RANGE_DAYS":                  30,
	"REQUEST_TIMEOUT":             "20s",
	"PROVIDER":                    ProviderLeadConnector,
	"LEADCONNECTOR_BASE_URL":      "https://services.leadconnectorhq.com",
	"LEADCONNECTOR_API_VERSION":   "2021-04-15",
	"OAUTH_CLIENT_ID":             "",
	"OAUTH_CLIENT_SECRET":         "",
	"OAUTH_TOKEN_URL":             "https://services.leadconnectorhq.com/oauth/token",
	"OAUTH_REFRESH_TOKEN":         "",
	"PROVIDER_ACCESS_TOKEN":       "",
	"GOOGLE_SLOT_STEP":            "15m",
	"GOOGLE_SLOT_DURATION":        "30m",
	"RETRY_MAX":                   3,
	"RETRY_BASE_DELAY":            "500ms",
	"REDIS_URL":                   "",
	"CACHE_TTL":                   "5m",
	"JWT_HMAC_SECRET":             "",
	"STATIC_TOKENS":               "",
	"CORS_ORIGINS":                "*",
	"OTEL_ENABLED":                false,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"OTEL_SAMPLING_RATIO":         1.0,
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(".env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RangeDays <= 0 {
		errs = append(errs, fmt.Errorf("RANGE_DAYS must be positive, got %d", c.RangeDays))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}
	switch c.Provider {
	case ProviderLeadConnector, ProviderGoogle:
	default:
		errs = append(errs, fmt.Errorf("PROVIDER must be %q or %q, got %q", ProviderLeadConnector, ProviderGoogle, c.Provider))
	}
	if c.ProviderAccessToken == "" && (c.OAuthClientID == "" || c.OAuthClientSecret == "") {
		errs = append(errs, errors.New("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required unless PROVIDER_ACCESS_TOKEN is set"))
	}
	if c.GoogleSlotStep <= 0 || c.GoogleSlotDuration <= 0 {
		errs = append(errs, errors.New("GOOGLE_SLOT_STEP and GOOGLE_SLOT_DURATION must be positive"))
	}
	if c.RetryMax < 0 {
		errs = append(errs, fmt.Errorf("RETRY_MAX must not be negative, got %d", c.RetryMax))
	}
	if c.OTelSamplingRatio < 0 || c.OTelSamplingRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0,1], got %v", c.OTelSamplingRatio))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func (c *Config) StaticTokenList() []string {
	return SplitList(c.StaticTokens)
}

func (c *Config) CORSOriginList() []string {
	return SplitList(c.CORSOrigins)
}

// SplitList splits a comma separated value and drops empty items.
func SplitList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
