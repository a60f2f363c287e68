package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Typed errors below match these sentinels through errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation indicates a file was rejected before upload.
	ErrValidation = errors.New("validation failed")

	// ErrNetwork indicates the backend could not be reached.
	ErrNetwork = errors.New("network error")

	// ErrServer indicates the backend answered a definitive operation with a non-2xx status.
	ErrServer = errors.New("server error")

	// ErrNotReady indicates the analysis has not been produced yet.
	// It is expected while polling and drives retries.
	ErrNotReady = errors.New("analysis not ready")

	// ErrRetryBudgetExhausted indicates polling gave up and the document was marked FAILED.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

	// ErrPollCancelled indicates a poll stopped because its document or view went away.
	ErrPollCancelled = errors.New("poll cancelled")

	// ErrPollInProgress indicates another poll already owns the document.
	ErrPollInProgress = errors.New("poll already in progress")
)

// ValidationError reports a file rejected by the pre-flight gate.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NetworkError reports a transport failure talking to the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is matches ErrNetwork.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ServerError reports a non-2xx answer to a definitive operation.
type ServerError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server error (status %d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// Is matches ErrServer.
func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// NotReadyError reports that a document's analysis is not available yet.
type NotReadyError struct {
	DocumentID string
	StatusCode int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("analysis for %s not ready (status %d)", e.DocumentID, e.StatusCode)
}

// Is matches ErrNotReady.
func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// IsUserFacing reports whether an error should be shown to the user as-is.
// Validation and server errors from definitive operations are user facing;
// not-ready answers never are.
func IsUserFacing(err error) bool {
	if err == nil || errors.Is(err, ErrNotReady) {
		return false
	}
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrServer) ||
		errors.Is(err, ErrNetwork) || errors.Is(err, ErrRetryBudgetExhausted)
}
