package devicecode

import (
	"errors"
	"fmt"
)

// Errors surfaced by stores and the repository adapter. Absence is never an
// error: lookups report a missing record as a nil result.
var (
	// ErrDuplicateIdentifier indicates a persist collided with an existing
	// device code identifier. The caller is expected to regenerate and retry.
	ErrDuplicateIdentifier = errors.New("device code identifier already exists")

	// ErrStoreUnavailable indicates the backing storage could not be reached.
	ErrStoreUnavailable = errors.New("device code store unavailable")

	// ErrInvalidUserCode indicates a user code that is unknown, expired, or
	// no longer pending.
	ErrInvalidUserCode = errors.New("invalid or expired user code")
)

// unavailable wraps a backend failure so callers can branch on
// ErrStoreUnavailable while keeping the underlying cause in the chain.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
