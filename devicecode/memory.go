package devicecode

import (
	"context"
	"sync"
	"time"

	"github.com/wrale/oauth2-device-store/validation"
)

// MemoryStore keeps device codes in process memory. One mutex guards both
// the record map and the user-code index; device code volume is low enough
// that contention is not a concern.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]*DeviceCode
	users map[string]string // normalized user code -> device code
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes: make(map[string]*DeviceCode),
		users: make(map[string]string),
	}
}

// Find returns the record for the given device code, or nil when absent.
func (s *MemoryStore) Find(_ context.Context, deviceCode string) (*DeviceCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[deviceCode]
	if !ok {
		return nil, nil
	}
	return code.clone(), nil
}

// FindByUserCode returns the unexpired record registered under the given
// user code, or nil when absent or already expired.
func (s *MemoryStore) FindByUserCode(_ context.Context, userCode string) (*DeviceCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deviceCode, ok := s.users[validation.NormalizeCode(userCode)]
	if !ok {
		return nil, nil
	}
	code, ok := s.codes[deviceCode]
	if !ok || code.Expired(time.Now()) {
		return nil, nil
	}
	return code.clone(), nil
}

// Insert writes a brand-new record, failing with ErrDuplicateIdentifier when
// the identifier is already taken.
func (s *MemoryStore) Insert(_ context.Context, code *DeviceCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code.DeviceCode]; ok {
		return ErrDuplicateIdentifier
	}
	s.codes[code.DeviceCode] = code.clone()
	if code.UserCode != "" {
		s.users[validation.NormalizeCode(code.UserCode)] = code.DeviceCode
	}
	return nil
}

// Save upserts the record under its device code identifier.
func (s *MemoryStore) Save(_ context.Context, code *DeviceCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[code.DeviceCode] = code.clone()
	if code.UserCode != "" {
		s.users[validation.NormalizeCode(code.UserCode)] = code.DeviceCode
	}
	return nil
}

// ClearExpired removes every record whose expiry has passed and returns the
// number removed.
func (s *MemoryStore) ClearExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for deviceCode, code := range s.codes {
		if !code.Expired(now) {
			continue
		}
		delete(s.codes, deviceCode)
		// The user code may have been reused by a fresh record before the
		// sweep ran; only drop the index entry if it still points here.
		norm := validation.NormalizeCode(code.UserCode)
		if s.users[norm] == deviceCode {
			delete(s.users, norm)
		}
		removed++
	}
	return removed, nil
}

// CheckHealth always succeeds for the in-memory store.
func (s *MemoryStore) CheckHealth(_ context.Context) error {
	return nil
}
