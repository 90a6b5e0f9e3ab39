package domain

import "github.com/pkg/errors"

// Mutation and sync failures are reduced to a small taxonomy so the
// presentation layer can render them without knowing store internals.
var (
	// ErrValidationFailed marks input rejected before any store call.
	ErrValidationFailed = errors.New("validation failed")

	// ErrWriteFailed marks a create/update/delete the store rejected or
	// that never reached it.
	ErrWriteFailed = errors.New("write failed")

	// ErrNotFound marks an update/delete whose target document is absent.
	ErrNotFound = errors.New("not found")

	// ErrSyncFailure marks a broken change-stream subscription. Unlike the
	// others it is ambient state: the last-known list stays frozen.
	ErrSyncFailure = errors.New("sync failure")

	// ErrAuthRequired marks a mutation attempted without an active session.
	ErrAuthRequired = errors.New("authentication required")
)

// ErrorCode returns the wire code for a taxonomy error, or a generic
// internal code for anything unclassified.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidationFailed):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAuthRequired):
		return "AUTH_REQUIRED"
	case errors.Is(err, ErrSyncFailure):
		return "SYNC_FAILURE"
	case errors.Is(err, ErrWriteFailed):
		return "WRITE_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
