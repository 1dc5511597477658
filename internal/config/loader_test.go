package config_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"ercot-forecast/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.AuthURL, convey.ShouldEqual, config.DefaultAuthURL)
				convey.So(cfg.Scope, convey.ShouldEqual, "openid fec253ea-0d06-4272-a5e6-b478baeecd70 offline_access")
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.TokenLifetime, convey.ShouldEqual, time.Hour)
				convey.So(cfg.PageSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.MaxResponseRows, convey.ShouldEqual, 1000)
				convey.So(cfg.CacheActive(), convey.ShouldBeFalse)
			})

			convey.Convey("Then credentials are reported missing", func() {
				err := cfg.RequireCredentials()
				convey.So(errors.Is(err, config.ErrConfiguration), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "ERCOTUSER, ERCOTPASS, ERCOTKEY")
			})
		})

		convey.Convey("When loading config with the legacy credential variables", func() {
			_ = os.Setenv("ERCOTUSER", "user@example.com")
			_ = os.Setenv("ERCOTPASS", "secret")
			_ = os.Setenv("ERCOTKEY", "subscription")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then the credentials are set", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Username, convey.ShouldEqual, "user@example.com")
				convey.So(cfg.Password, convey.ShouldEqual, "secret")
				convey.So(cfg.SubscriptionKey, convey.ShouldEqual, "subscription")
				convey.So(cfg.RequireCredentials(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When both legacy and prefixed variables are set", func() {
			_ = os.Setenv("ERCOTUSER", "legacy")
			_ = os.Setenv("ERCOT_USERNAME", "prefixed")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then the prefixed variable wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Username, convey.ShouldEqual, "prefixed")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ERCOT_ADDR", ":9090")
			_ = os.Setenv("ERCOT_REQUEST_TIMEOUT", "45s")
			_ = os.Setenv("ERCOT_MAX_PAGES", "3")
			_ = os.Setenv("ERCOT_CACHE_ENABLED", "true")
			_ = os.Setenv("ERCOT_CORS_ORIGINS", "http://localhost:5173, https://example.com")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 45*time.Second)
				convey.So(cfg.MaxPages, convey.ShouldEqual, 3)
				convey.So(cfg.CacheActive(), convey.ShouldBeTrue)
				convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"http://localhost:5173", "https://example.com"})
			})
		})

		convey.Convey("When the cache is enabled in production", func() {
			_ = os.Setenv("ERCOT_CACHE_ENABLED", "true")
			_ = os.Setenv("ERCOT_ENV", "production")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then the cache stays off", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.CacheEnabled, convey.ShouldBeTrue)
				convey.So(cfg.CacheActive(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":7070"
log_level: debug
log_format: json
requests_per_minute: 10
token_lifetime: 30m
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ERCOT_CONFIG", tmpFile)
			_ = os.Setenv("ERCOT_LOG_LEVEL", "warn")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.RequestsPerMinute, convey.ShouldEqual, 10)
				convey.So(cfg.TokenLifetime, convey.ShouldEqual, 30*time.Minute)
				convey.So(cfg.PageSize, convey.ShouldEqual, 100_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ERCOT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ERCOT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an invalid log format", func() {
			_ = os.Setenv("ERCOT_LOG_FORMAT", "xml")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "log_format")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ERCOT_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ERCOT_MAX_PAGES", "many")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ERCOT_CONFIG",
		"ERCOT_ADDR",
		"ERCOT_USERNAME",
		"ERCOT_REQUEST_TIMEOUT",
		"ERCOT_MAX_PAGES",
		"ERCOT_CACHE_ENABLED",
		"ERCOT_CORS_ORIGINS",
		"ERCOT_ENV",
		"ERCOT_LOG_LEVEL",
		"ERCOT_LOG_FORMAT",
		"ERCOTUSER",
		"ERCOTPASS",
		"ERCOTKEY",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "ercot-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
