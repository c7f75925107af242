package clip

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSegments is returned when Concatenate is called with an empty segment
// list. No filesystem side effects occur in this case.
var ErrNoSegments = errors.New("no segments provided")

// ErrInvalidTrim is returned when a trim spec has a negative start offset or
// a non-positive duration. Checked before any side effects.
var ErrInvalidTrim = errors.New("invalid trim spec")

// ErrTranscodeTimeout marks a watchdog kill of a hung engine process. It is
// always terminal; a timed-out attempt is never retried.
var ErrTranscodeTimeout = errors.New("transcode watchdog timeout")

// TranscodeError wraps a failed engine invocation together with the
// diagnostic text the engine wrote to stderr. The diagnostic is the only
// signal available for deciding whether an attempt is worth retrying.
type TranscodeError struct {
	Diagnostic string
	Err        error
}

func (e *TranscodeError) Error() string {
	diag := strings.TrimSpace(e.Diagnostic)
	if diag == "" {
		return fmt.Sprintf("transcode failed: %v", e.Err)
	}
	return fmt.Sprintf("transcode failed: %v: %s", e.Err, diag)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// ErrorClass represents whether a failed attempt should be retried.
type ErrorClass int

const (
	// ErrorClassRetryable indicates a transient failure, typically stale
	// metadata on a networked mount where a segment exists but is not yet
	// visible to the engine.
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates the attempt should not be repeated.
	ErrorClassFatal
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// retryablePatterns are lowercase substrings of ffmpeg diagnostics that
// indicate a segment was listed in its directory but not yet readable, the
// signature of a stale cache on shared storage. Anything else is fatal.
//
// Matching free text is brittle; keep every pattern here so the heuristic can
// be replaced wholesale (e.g. by structured exit codes) without touching the
// retry loop.
var retryablePatterns = []string{
	"impossible to open",
	"cannot open",
	"no such file or directory",
	"invalid data found when processing input",
	"invalid data found while demuxing",
	"error while opening file",
}

// ClassifyTranscodeError decides whether a failed attempt may be retried.
// Timeouts are always fatal: a hung process is not distinguishable from a
// legitimately oversized job, and re-running it would hold the worker for
// another full watchdog ceiling.
func ClassifyTranscodeError(err error) ErrorClass {
	if err == nil {
		return ErrorClassFatal
	}
	if errors.Is(err, ErrTranscodeTimeout) {
		return ErrorClassFatal
	}
	var te *TranscodeError
	if !errors.As(err, &te) {
		return ErrorClassFatal
	}
	lower := strings.ToLower(te.Diagnostic)
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassRetryable
		}
	}
	return ErrorClassFatal
}

// IsRetryableError checks if an error should trigger retry logic.
func IsRetryableError(err error) bool {
	return ClassifyTranscodeError(err) == ErrorClassRetryable
}
