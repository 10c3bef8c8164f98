package vitals

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registration and bootstrap paths. Wrap or compare
// with errors.Is.
var (
	// Configuration errors. These signal a programming mistake in the host
	// application and are raised synchronously; they are never retried.
	ErrNilCommonConfig      = errors.New("common config is required")
	ErrNilApplication       = errors.New("application handle is required")
	ErrInvalidMonitorConfig = errors.New("monitor config does not declare a monitor kind")
	ErrNoLifecycleSource    = errors.New("no lifecycle source configured")

	// Registration errors.
	ErrNilMonitor = errors.New("monitor constructor returned nil")

	// State errors.
	ErrAlreadyStarted = errors.New("manager already started")
)

// MonitorError carries context about which operation failed and for which
// monitor kind. It wraps the underlying cause for errors.Is/As.
type MonitorError struct {
	Op      string // operation that failed, e.g. "add_monitor_config"
	Kind    Kind   // monitor kind involved, if any
	Message string // human-readable context
	Err     error  // underlying error
}

func (e *MonitorError) Error() string {
	msg := e.Op
	if e.Kind != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Kind)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MonitorError) Unwrap() error {
	return e.Err
}

// NewMonitorError creates a MonitorError with full context.
func NewMonitorError(op string, kind Kind, message string, err error) *MonitorError {
	return &MonitorError{
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsConfigError reports whether err is one of the fatal configuration
// errors: a malformed monitor config or a broken CommonConfig.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidMonitorConfig) ||
		errors.Is(err, ErrNilCommonConfig) ||
		errors.Is(err, ErrNilApplication) ||
		errors.Is(err, ErrNoLifecycleSource)
}

// IsStateError reports whether err indicates an operation arrived in the
// wrong lifecycle state.
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadyStarted)
}
