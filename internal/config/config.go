// Package config loads process settings for the ERCOT client, the tool
// server and the CLI.
package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultAuthURL  = "https://ercotb2c.b2clogin.com/ercotb2c.onmicrosoft.com/B2C_1_PUBAPI-ROPC-FLOW/oauth2/v2.0/token"
	DefaultClientID = "fec253ea-0d06-4272-a5e6-b478baeecd70"
	DefaultScope    = "openid " + DefaultClientID + " offline_access"
	DefaultBaseURL  = "https://api.ercot.com/api/public-reports/"

	EnvProduction = "production"
)

// Config contains process configuration.
type Config struct {
	// Username, Password and SubscriptionKey are the ERCOT API credentials.
	Username        string `koanf:"username"`
	Password        string `koanf:"password"`
	SubscriptionKey string `koanf:"subscription_key"`

	AuthURL  string `koanf:"auth_url"`
	ClientID string `koanf:"client_id"`
	Scope    string `koanf:"scope"`

	// APIBaseURL roots every endpoint path in the catalog.
	APIBaseURL string `koanf:"api_base_url"`

	RequestTimeout time.Duration `koanf:"request_timeout"`
	// TokenLifetime caps how long an id_token is reused.
	TokenLifetime time.Duration `koanf:"token_lifetime"`
	// RequestsPerMinute throttles upstream calls; 0 disables the limiter.
	RequestsPerMinute int `koanf:"requests_per_minute"`
	PageSize          int `koanf:"page_size"`
	// MaxPages bounds pagination per fetch.
	MaxPages int `koanf:"max_pages"`

	// CacheEnabled turns on the in-memory response cache. Ignored when Env
	// is production.
	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	Env  string `koanf:"env"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// MaxResponseRows truncates tables returned by the tool server.
	MaxResponseRows int `koanf:"max_response_rows"`
	// CORSOrigins is a comma separated allow list; empty allows any origin.
	CORSOrigins string `koanf:"cors_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		AuthURL:           DefaultAuthURL,
		ClientID:          DefaultClientID,
		Scope:             DefaultScope,
		APIBaseURL:        DefaultBaseURL,
		RequestTimeout:    30 * time.Second,
		TokenLifetime:     time.Hour,
		RequestsPerMinute: 30,
		PageSize:          100_000,
		MaxPages:          50,
		CacheTTL:          time.Hour,
		Addr:              ":8080",
		Env:               "development",
		LogLevel:          "info",
		LogFormat:         "text",
		MaxResponseRows:   1000,
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.AuthURL == "" || c.APIBaseURL == "" {
		return fmt.Errorf("%w: auth_url and api_base_url must not be empty", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	if c.TokenLifetime <= 0 {
		return fmt.Errorf("%w: token_lifetime must be positive", ErrInvalidConfig)
	}
	if c.PageSize <= 0 || c.MaxPages <= 0 {
		return fmt.Errorf("%w: page_size and max_pages must be positive", ErrInvalidConfig)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests_per_minute must not be negative", ErrInvalidConfig)
	}
	if c.MaxResponseRows <= 0 {
		return fmt.Errorf("%w: max_response_rows must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// RequireCredentials reports every missing ERCOT credential at once.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "ERCOTUSER")
	}
	if c.Password == "" {
		missing = append(missing, "ERCOTPASS")
	}
	if c.SubscriptionKey == "" {
		missing = append(missing, "ERCOTKEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing ERCOT credentials; set %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// CacheActive reports whether the response cache may be used.
func (c *Config) CacheActive() bool {
	return c.CacheEnabled && c.Env != EnvProduction
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
