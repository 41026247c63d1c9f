package settlement

import "errors"

// Closing a settlement fails with exactly one of these kinds. Callers match
// them with errors.Is; each maps to its own externally visible status.
var (
	// ErrNotFound means the settlement ID is unknown.
	ErrNotFound = errors.New("settlement not found")

	// ErrAlreadyClosed means the settlement is not open, including when a
	// concurrent close committed first.
	ErrAlreadyClosed = errors.New("settlement already closed")

	// ErrNoParticipants means there is nobody to balance.
	ErrNoParticipants = errors.New("settlement has no participants")

	// ErrDataUnavailable means the datastore could not be read, or a commit
	// ended without a known outcome. Retry with the same idempotency token.
	ErrDataUnavailable = errors.New("settlement data unavailable")

	// ErrInvariantViolation means balances or transfers broke conservation.
	// It signals a bug or corrupted data, never a user mistake.
	ErrInvariantViolation = errors.New("settlement invariant violated")
)

// Kind returns a stable label for err, used in logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyClosed):
		return "already_closed"
	case errors.Is(err, ErrNoParticipants):
		return "no_participants"
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "error"
	}
}
