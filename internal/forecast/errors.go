package forecast

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientData   = errors.New("insufficient data")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNoTrainingData     = errors.New("no training data")
	ErrNoSuccessfulSplits = errors.New("no cross-validation split could be fitted")
)

// InsufficientDataError reports a split request for more training days than
// the data holds.
type InsufficientDataError struct {
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough days in data: need more than %d days, have %d", e.Required, e.Available)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
