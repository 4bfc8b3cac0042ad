package engine

import (
	"errors"
	"fmt"
)

// ErrInterrupted marks a user-requested cancellation. It is a controlled
// failure path distinct from ordinary failure so callers can tell "I stopped
// it" from "it failed".
var ErrInterrupted = errors.New("run interrupted")

// ConfigError is fatal and detected before any provisioning: cycles, unknown
// tasks or containers, invalid command combinations. No resource exists when
// one is reported.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// StepError is the typed failure of a provisioning or runtime step. Only the
// executor decides whether it is fatal to the session.
type StepError struct {
	Step  string
	Node  string
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s for %s failed: %v", e.Step, e.Node, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// TeardownError records a best-effort teardown failure. It never changes the
// task's exit code; it is surfaced separately so the user knows manual
// cleanup may be required.
type TeardownError struct {
	Step  string
	Node  string
	Cause error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown step %s for %s failed: %v", e.Step, e.Node, e.Cause)
}

func (e *TeardownError) Unwrap() error {
	return e.Cause
}
