package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// legacyEnv maps the credential variables the ERCOT tooling has always read
// to config keys. They apply only when the ERCOT_ prefixed form is unset.
var legacyEnv = map[string]string{
	"ERCOTUSER": "username",
	"ERCOTPASS": "password",
	"ERCOTKEY":  "subscription_key",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ERCOT_CONFIG is set
//  3. legacy ERCOTUSER / ERCOTPASS / ERCOTKEY
//  4. env (prefix ERCOT_)
func Load() (*Config, error) {
	cfg, err := LoadUnchecked()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnchecked layers the sources without validating the result.
func LoadUnchecked() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ERCOT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, err
			}
		}
	}

	// ERCOT_REQUEST_TIMEOUT -> request_timeout
	envProvider := env.Provider("ERCOT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "ercot_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
