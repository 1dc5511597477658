package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrUnknownCategory = errors.New("unknown category")
)

// UnknownEndpointError names the requested endpoint and what is available.
type UnknownEndpointError struct {
	Name      string
	Available []string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint: %s. Available: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownEndpointError) Is(target error) bool {
	return target == ErrUnknownEndpoint
}
