// Package repository bridges device code storage to an OAuth2 protocol
// engine. The engine owns token issuance and validation; it reaches this
// subsystem only through DeviceCodeRepository, and relies on its uniqueness
// and revocation guarantees for the correctness of the whole grant.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wrale/oauth2-device-store/devicecode"
)

// DeviceCodeRepository implements the engine's device code repository
// contract on top of a devicecode.Store. One mutex serializes every
// check-then-write sequence so identifier uniqueness and read-modify-write
// mutations hold under concurrent engine workers.
type DeviceCodeRepository struct {
	store          devicecode.Store
	clients        ClientManager
	scopes         ScopeConverter
	clientEntities ClientRepository

	verificationURI    string
	defaultInterval    int
	includeURIComplete bool

	mu sync.Mutex
}

// Option configures a DeviceCodeRepository.
type Option func(*DeviceCodeRepository)

// WithVerificationURI sets the base URI users visit to enter their code.
// It is process-wide configuration, stamped into every draft at creation.
func WithVerificationURI(uri string) Option {
	return func(r *DeviceCodeRepository) {
		r.verificationURI = uri
	}
}

// WithDefaultInterval sets the minimum poll interval, in seconds, stamped
// into new drafts.
func WithDefaultInterval(seconds int) Option {
	return func(r *DeviceCodeRepository) {
		r.defaultInterval = seconds
	}
}

// WithVerificationURIComplete controls whether drafts ask for the
// verification URI with the user code embedded as a query parameter.
func WithVerificationURIComplete(include bool) Option {
	return func(r *DeviceCodeRepository) {
		r.includeURIComplete = include
	}
}

// New creates a repository over the given store and collaborators.
func New(store devicecode.Store, clients ClientManager, scopes ScopeConverter, clientEntities ClientRepository, opts ...Option) *DeviceCodeRepository {
	r := &DeviceCodeRepository{
		store:           store,
		clients:         clients,
		scopes:          scopes,
		clientEntities:  clientEntities,
		defaultInterval: 5,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDeviceCode returns a fresh, unpersisted draft for the engine to
// populate with identity, expiry, client, scope, and user-code fields.
// It never fails.
func (r *DeviceCodeRepository) NewDeviceCode() *DeviceCodeEntity {
	return &DeviceCodeEntity{
		VerificationURI:                r.verificationURI,
		IncludeVerificationURIComplete: r.includeURIComplete,
		Interval:                       r.defaultInterval,
	}
}

// PersistDeviceCode writes a populated draft through to the store. A persist
// whose identifier is already present fails with ErrDuplicateIdentifier and
// leaves the stored record untouched; the engine regenerates and retries.
// The check and the write are atomic with respect to concurrent persists.
//
// The record always enters the store pending: approval is the approval
// action's job, never creation's.
func (r *DeviceCodeRepository) PersistDeviceCode(ctx context.Context, entity *DeviceCodeEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.Find(ctx, entity.Identifier)
	if err != nil {
		return fmt.Errorf("checking device code identifier: %w", err)
	}
	if existing != nil {
		return devicecode.ErrDuplicateIdentifier
	}

	if entity.Client == nil {
		return fmt.Errorf("persisting device code %q: draft has no client", entity.Identifier)
	}
	clientID := entity.Client.Identifier()

	client, err := r.clients.Find(ctx, clientID)
	if err != nil {
		return fmt.Errorf("resolving client %q: %w", clientID, err)
	}

	code := &devicecode.DeviceCode{
		DeviceCode:                     entity.Identifier,
		UserCode:                       entity.UserCode,
		ExpiresAt:                      entity.ExpiresAt,
		ClientID:                       client.ID,
		UserID:                         entity.UserIdentifier,
		Scopes:                         r.scopes.ToDomain(entity.Scopes),
		Status:                         devicecode.StatusPending,
		VerificationURI:                entity.VerificationURI,
		IncludeVerificationURIComplete: entity.IncludeVerificationURIComplete,
		LastPolledAt:                   entity.LastPolledAt,
		Interval:                       entity.Interval,
	}

	// Insert re-checks the identifier atomically at the storage layer, so a
	// second process racing past the lookup above still loses cleanly.
	if err := r.store.Insert(ctx, code); err != nil {
		if errors.Is(err, devicecode.ErrDuplicateIdentifier) {
			return devicecode.ErrDuplicateIdentifier
		}
		return fmt.Errorf("saving device code: %w", err)
	}
	return nil
}

// GetDeviceCodeEntityByDeviceCode returns the engine-shaped entity for the
// given device code, or nil when the store has no such record. Absence means
// "unknown or already consumed", not an error.
func (r *DeviceCodeRepository) GetDeviceCodeEntityByDeviceCode(ctx context.Context, deviceCode string) (*DeviceCodeEntity, error) {
	code, err := r.store.Find(ctx, deviceCode)
	if err != nil {
		return nil, fmt.Errorf("finding device code: %w", err)
	}
	if code == nil {
		return nil, nil
	}
	return r.buildEntity(ctx, code)
}

// RevokeDeviceCode marks the device code revoked. Revoking an absent code is
// a no-op: the caller may be racing the expiry sweep, and either way the
// code can no longer be redeemed.
func (r *DeviceCodeRepository) RevokeDeviceCode(ctx context.Context, deviceCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.store.Find(ctx, deviceCode)
	if err != nil {
		return fmt.Errorf("finding device code: %w", err)
	}
	if code == nil {
		return nil
	}

	code.Revoke()
	if err := r.store.Save(ctx, code); err != nil {
		return fmt.Errorf("saving revoked device code: %w", err)
	}
	return nil
}

// IsDeviceCodeRevoked reports whether tokens may no longer be issued against
// the device code. It fails closed: a code the store cannot produce, and an
// expired code pending cleanup, both report true. Undefined device codes
// must never be treated as valid.
func (r *DeviceCodeRepository) IsDeviceCodeRevoked(ctx context.Context, deviceCode string) (bool, error) {
	code, err := r.store.Find(ctx, deviceCode)
	if err != nil {
		return true, fmt.Errorf("finding device code: %w", err)
	}
	if code == nil {
		return true, nil
	}
	if code.Expired(time.Now()) {
		return true, nil
	}
	return code.Revoked(), nil
}

// FindByUserCode returns the unexpired domain record registered under the
// given user code, for the approval UI to display before the user decides.
// Absent or expired codes return nil.
func (r *DeviceCodeRepository) FindByUserCode(ctx context.Context, userCode string) (*devicecode.DeviceCode, error) {
	code, err := r.store.FindByUserCode(ctx, userCode)
	if err != nil {
		return nil, fmt.Errorf("finding user code: %w", err)
	}
	return code, nil
}

// ApproveByUserCode records the user's approval of the session matching the
// given user code. Unknown, expired, or already-revoked codes fail with
// devicecode.ErrInvalidUserCode; they must never become approvable.
func (r *DeviceCodeRepository) ApproveByUserCode(ctx context.Context, userCode, userID string) (*devicecode.DeviceCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.store.FindByUserCode(ctx, userCode)
	if err != nil {
		return nil, fmt.Errorf("finding user code: %w", err)
	}
	if code == nil || code.Revoked() {
		return nil, devicecode.ErrInvalidUserCode
	}

	code.Approve(userID)
	if err := r.store.Save(ctx, code); err != nil {
		return nil, fmt.Errorf("saving approved device code: %w", err)
	}
	return code, nil
}

// DenyByUserCode revokes the session matching the given user code, for the
// approval UI's deny action. Unknown or expired codes fail with
// devicecode.ErrInvalidUserCode so the UI can tell the user.
func (r *DeviceCodeRepository) DenyByUserCode(ctx context.Context, userCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.store.FindByUserCode(ctx, userCode)
	if err != nil {
		return fmt.Errorf("finding user code: %w", err)
	}
	if code == nil {
		return devicecode.ErrInvalidUserCode
	}

	code.Revoke()
	if err := r.store.Save(ctx, code); err != nil {
		return fmt.Errorf("saving revoked device code: %w", err)
	}
	return nil
}

// buildEntity materializes a stored record outward into the engine's shape.
// The client entity is built through the external client repository; this
// conversion only ever happens store-to-engine.
func (r *DeviceCodeRepository) buildEntity(ctx context.Context, code *devicecode.DeviceCode) (*DeviceCodeEntity, error) {
	client, err := r.clientEntities.BuildClientEntity(ctx, code.ClientID)
	if err != nil {
		return nil, fmt.Errorf("building client entity for %q: %w", code.ClientID, err)
	}

	return &DeviceCodeEntity{
		Identifier:                     code.DeviceCode,
		ExpiresAt:                      code.ExpiresAt,
		Client:                         client,
		UserIdentifier:                 code.UserID,
		Scopes:                         r.scopes.ToEntity(code.Scopes),
		UserCode:                       code.UserCode,
		UserApproved:                   code.UserApproved(),
		IncludeVerificationURIComplete: code.IncludeVerificationURIComplete,
		VerificationURI:                code.VerificationURI,
		LastPolledAt:                   code.LastPolledAt,
		Interval:                       code.Interval,
	}, nil
}
