package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel every validation failure unwraps to.
var ErrInvalidConfig = errors.New("invalid config")

// Error names the offending setting.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalidConfig }

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}
