// Package apperr defines the sentinel errors shared across the capture
// pipeline. Every failure a fetcher, cacher, or the reindexer can produce
// wraps one of these markers so callers can branch with errors.Is and so
// the recorded failure kind on a note stays stable across refactors.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference means the classifier could not claim the input.
	ErrInvalidReference = errors.New("invalid reference")

	// Fetch failures.
	ErrNotFound    = errors.New("not found")
	ErrAuthFailure = errors.New("auth failure")
	ErrNetwork     = errors.New("network error")
	ErrRateLimited = errors.New("rate limited")

	// Cache failures.
	ErrDownloadFailed = errors.New("download failed")
	ErrUnsupported    = errors.New("unsupported")

	// Reindex failures.
	ErrInconsistentSeries = errors.New("inconsistent series data")
)

// Wrap attaches a marker and an operation name to an underlying error.
// Both the marker and the cause stay reachable through errors.Is/As.
func Wrap(marker error, op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, marker)
	}
	return fmt.Errorf("%s: %w: %w", op, marker, err)
}

// Kind maps an error to the failure-kind string recorded in note headers
// and batch summaries.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidReference):
		return "InvalidReference"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrAuthFailure):
		return "AuthFailure"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	case errors.Is(err, ErrNetwork):
		return "NetworkError"
	case errors.Is(err, ErrDownloadFailed):
		return "DownloadFailed"
	case errors.Is(err, ErrUnsupported):
		return "Unsupported"
	case errors.Is(err, ErrInconsistentSeries):
		return "InconsistentSeriesData"
	default:
		return "Unknown"
	}
}
