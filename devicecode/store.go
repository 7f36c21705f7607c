package devicecode

import "context"

// Store defines the interface for device code storage. Implementations keep
// one record per device code identifier plus a user-code lookup index.
type Store interface {
	// Find returns the device code with the given identifier, or nil when no
	// such record exists. The returned record reflects the current approval
	// and revocation state.
	Find(ctx context.Context, deviceCode string) (*DeviceCode, error)

	// FindByUserCode returns the unexpired device code registered under the
	// given user code. A record whose expiry has passed is treated as absent
	// even if it has not been swept yet; it must never be approvable.
	FindByUserCode(ctx context.Context, userCode string) (*DeviceCode, error)

	// Insert writes a brand-new record, failing with ErrDuplicateIdentifier
	// when a record with the same device code identifier already exists. The
	// existence check and the write are atomic, even across processes
	// sharing a persistent backend.
	Insert(ctx context.Context, code *DeviceCode) error

	// Save upserts the record under its device code identifier. Callers use
	// it for state mutations of records that already went through Insert.
	Save(ctx context.Context, code *DeviceCode) error

	// ClearExpired removes every record whose expiry has passed and returns
	// the number removed. It is advisory housekeeping; read paths already
	// treat expired records as absent.
	ClearExpired(ctx context.Context) (int, error)

	// CheckHealth verifies the storage backend is reachable.
	CheckHealth(ctx context.Context) error
}
