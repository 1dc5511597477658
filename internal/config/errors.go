package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidConfig = errors.New("invalid config")
)
