package orchestrator

import "errors"

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ jobID string }

func (e tooBusyError) Error() string { return "too busy: job " + e.jobID + " not admitted" }

// ErrTooBusy constructs the backpressure error returned when jobID could not
// be admitted in time.
func ErrTooBusy(jobID string) error { return tooBusyError{jobID: jobID} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// invalidRequestError wraps request validation failures (return 400).
type invalidRequestError struct{ err error }

func (e invalidRequestError) Error() string { return "invalid request: " + e.err.Error() }

func (e invalidRequestError) Unwrap() error { return e.err }

// IsInvalidRequest reports whether err was caused by a malformed request.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals that no separator is configured, so the
// HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing separator.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
