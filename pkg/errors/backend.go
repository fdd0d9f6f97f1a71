package errors

import (
	"fmt"
	"net/http"
)

// APIError is a non-auth failure reported by a remote table API.
// 429 matches ErrRateLimited and 5xx matches ErrUnavailable.
type APIError struct {
	Backend    string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Backend, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Backend, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError returns an APIError without a cause.
func NewAPIError(backend string, statusCode int, message string) *APIError {
	return &APIError{Backend: backend, StatusCode: statusCode, Message: message}
}

// WrapAPI reports err as an APIError from backend. Nil stays nil.
func WrapAPI(backend string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Backend: backend, StatusCode: statusCode, Message: err.Error(), Err: err}
}

// AuthenticationError means the backend refused the caller's identity.
type AuthenticationError struct {
	Backend string
	Method  string // adc, credentials_file, oauth
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s rejected %s credentials: %s", e.Backend, e.Method, e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrUnauthenticated }

// NewAuthenticationError returns an AuthenticationError.
func NewAuthenticationError(backend, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{Backend: backend, Method: method, Message: message, Err: err}
}

// TimeoutError reports an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

func (e *TimeoutError) Error() string {
	after := ""
	if e.Duration != "" {
		after = " after " + e.Duration
	}
	return fmt.Sprintf("%s timed out%s: %s", e.Operation, after, e.Message)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// NewTimeoutError returns a TimeoutError.
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration, Message: message}
}

// ConfigError reports an unusable setting or option.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Component != "" {
		msg = e.Component + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "config: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError returns a ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// OpError records which operation on which object failed: a file read,
// a YAML parse, a snapshot encode, a viewer open.
type OpError struct {
	Op     string
	Kind   string // file, snapshot, viewer, workbook, yaml
	Target string
	Err    error
}

func (e *OpError) Error() string {
	subject := e.Kind
	if e.Target != "" {
		subject += " " + e.Target
	}
	return fmt.Sprintf("%s %s: %v", e.Op, subject, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// NewResourceError returns an OpError on a named resource.
func NewResourceError(op, resource, id string, err error) *OpError {
	return &OpError{Op: op, Kind: resource, Target: id, Err: err}
}

// WrapResource is NewResourceError that leaves nil errors alone.
func WrapResource(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(op, resource, id, err)
}

// WrapIO reports err as a failed file operation on path.
func WrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: "file", Target: path, Err: err}
}

// WrapParse reports err as a failure decoding file as format.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: "parse", Kind: format, Target: file, Err: err}
}
