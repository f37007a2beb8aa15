package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is returned for invalid or contradictory options
var ErrConfiguration = errors.New("invalid configuration")

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
