// Package errors provides error classification and handling for panelctl.
package errors

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorType represents the classification of errors
type ErrorType int

const (
	// SetupErrorType represents configuration, store or initialization errors
	SetupErrorType ErrorType = iota

	// InvalidArgumentErrorType represents bad operator input rejected before any side effect
	InvalidArgumentErrorType

	// ConnectivityErrorType represents network or transport failures reaching a daemon
	ConnectivityErrorType

	// RemoteRejectedErrorType represents an application-level error returned by a daemon
	RemoteRejectedErrorType

	// TimeoutErrorType represents a daemon call that exceeded its deadline
	TimeoutErrorType

	// UnknownErrorType represents unclassified errors
	UnknownErrorType
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case SetupErrorType:
		return "setup"
	case InvalidArgumentErrorType:
		return "invalid_argument"
	case ConnectivityErrorType:
		return "connectivity"
	case RemoteRejectedErrorType:
		return "remote_rejected"
	case TimeoutErrorType:
		return "timeout"
	default:
		return "unknown"
	}
}

// ErrInvalidArgument marks every argument validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError describes a rejected CLI input
type InvalidArgumentError struct {
	Argument string
	Value    string
	Message  string
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrInvalidArgument) hold for every InvalidArgumentError
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NewInvalidArgument creates an argument validation error for the named input
func NewInvalidArgument(argument, value, message string) *InvalidArgumentError {
	return &InvalidArgumentError{
		Argument: argument,
		Value:    value,
		Message:  message,
	}
}

// IsInvalidArgument reports whether err is, or wraps, an argument validation failure
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// ActionError is the failure outcome of one remote action against one server.
// It is returned, never panicked, and is never retried by the client that produced it.
type ActionError struct {
	Type       ErrorType
	Detail     string
	StatusCode int
	Original   error
}

// Error implements the error interface
func (ae *ActionError) Error() string {
	if ae.Detail != "" {
		return ae.Detail
	}
	if ae.Original != nil {
		return ae.Original.Error()
	}
	return "unknown error"
}

// Unwrap returns the original error for error unwrapping
func (ae *ActionError) Unwrap() error {
	return ae.Original
}

// NewConnectivityError creates a new connectivity error
func NewConnectivityError(detail string, original error) *ActionError {
	return &ActionError{
		Type:     ConnectivityErrorType,
		Detail:   detail,
		Original: original,
	}
}

// NewRemoteRejectedError creates an error for a daemon response with a failing status
func NewRemoteRejectedError(statusCode int, detail string) *ActionError {
	return &ActionError{
		Type:       RemoteRejectedErrorType,
		Detail:     detail,
		StatusCode: statusCode,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(detail string, original error) *ActionError {
	return &ActionError{
		Type:     TimeoutErrorType,
		Detail:   detail,
		Original: original,
	}
}

// AsActionError extracts an ActionError from err
func AsActionError(err error) (*ActionError, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// ClassifyTransport turns an error raised while sending a request into an ActionError
func ClassifyTransport(err error) *ActionError {
	if err == nil {
		return nil
	}
	if ae, ok := AsActionError(err); ok {
		return ae
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err.Error(), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err.Error(), err)
	}

	if isTimeoutMessage(strings.ToLower(err.Error())) {
		return NewTimeoutError(err.Error(), err)
	}

	return NewConnectivityError(err.Error(), err)
}

// isTimeoutMessage catches timeouts from transports that do not expose net.Error
func isTimeoutMessage(errStr string) bool {
	timeoutKeywords := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
	}

	for _, keyword := range timeoutKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// TypeOf returns the classification of any error produced by panelctl
func TypeOf(err error) ErrorType {
	if err == nil {
		return UnknownErrorType
	}
	if ae, ok := AsActionError(err); ok {
		return ae.Type
	}
	if IsInvalidArgument(err) {
		return InvalidArgumentErrorType
	}
	return UnknownErrorType
}

// Wrap annotates err with a message, keeping it matchable with errors.Is
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ErrorCollector collects and categorizes action errors for a batch
type ErrorCollector struct {
	errors map[ErrorType][]error
	count  int
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make(map[ErrorType][]error),
	}
}

// Add adds an error to the collector
func (ec *ErrorCollector) Add(err error) {
	if err == nil {
		return
	}

	t := TypeOf(err)
	ec.errors[t] = append(ec.errors[t], err)
	ec.count++
}

// Count returns the total number of errors
func (ec *ErrorCollector) Count() int {
	return ec.count
}

// CountByType returns the number of errors of a specific type
func (ec *ErrorCollector) CountByType(errorType ErrorType) int {
	return len(ec.errors[errorType])
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	return ec.count > 0
}

// Summary returns a summary of all collected errors in type order
func (ec *ErrorCollector) Summary() string {
	if ec.count == 0 {
		return "no errors"
	}

	var parts []string
	for t := SetupErrorType; t <= UnknownErrorType; t++ {
		if n := len(ec.errors[t]); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t.String()))
		}
	}

	return fmt.Sprintf("total: %d errors (%s)", ec.count, strings.Join(parts, ", "))
}
