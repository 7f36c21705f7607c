package devicecode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wrale/oauth2-device-store/validation"
)

const (
	devicePrefix = "device:"
	userPrefix   = "user:"
)

// RedisStore implements Store backed by Redis. Keys carry a TTL equal to the
// record's remaining lifetime, so expired records disappear without a sweep.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Find returns the record for the given device code, or nil when absent.
func (s *RedisStore) Find(ctx context.Context, deviceCode string) (*DeviceCode, error) {
	data, err := s.client.Get(ctx, devicePrefix+deviceCode).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, unavailable("getting device code", err)
	}

	var code DeviceCode
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, fmt.Errorf("unmarshaling device code: %w", err)
	}
	return &code, nil
}

// FindByUserCode resolves the user-code reference and returns the record it
// points at. TTLs guarantee an expired record is already absent.
func (s *RedisStore) FindByUserCode(ctx context.Context, userCode string) (*DeviceCode, error) {
	deviceCode, err := s.client.Get(ctx, userPrefix+validation.NormalizeCode(userCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, unavailable("getting user code reference", err)
	}
	return s.Find(ctx, deviceCode)
}

// Insert writes a brand-new record, using SET NX so two concurrent inserts
// of the same identifier cannot both win; the loser gets
// ErrDuplicateIdentifier. An already-expired record is immediately
// collectable and is not stored.
func (s *RedisStore) Insert(ctx context.Context, code *DeviceCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshaling device code: %w", err)
	}

	stored, err := s.client.SetNX(ctx, devicePrefix+code.DeviceCode, data, ttl).Result()
	if err != nil {
		return unavailable("inserting device code", err)
	}
	if !stored {
		return ErrDuplicateIdentifier
	}

	if err := s.client.Set(ctx, userPrefix+validation.NormalizeCode(code.UserCode), code.DeviceCode, ttl).Err(); err != nil {
		return unavailable("saving user code reference", err)
	}
	return nil
}

// Save upserts the record and its user-code reference with the remaining
// time to expiry as TTL. Saving an already-expired record removes any keys
// still present instead; it would be collectable immediately anyway.
func (s *RedisStore) Save(ctx context.Context, code *DeviceCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		pipe := s.client.Pipeline()
		pipe.Del(ctx, devicePrefix+code.DeviceCode)
		pipe.Del(ctx, userPrefix+validation.NormalizeCode(code.UserCode))
		if _, err := pipe.Exec(ctx); err != nil {
			return unavailable("removing expired device code", err)
		}
		return nil
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshaling device code: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, devicePrefix+code.DeviceCode, data, ttl)
	pipe.Set(ctx, userPrefix+validation.NormalizeCode(code.UserCode), code.DeviceCode, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("saving device code", err)
	}
	return nil
}

// ClearExpired is a no-op for Redis: key TTLs collect expired records
// continuously, so there is never anything left to sweep.
func (s *RedisStore) ClearExpired(_ context.Context) (int, error) {
	return 0, nil
}

// CheckHealth verifies Redis connectivity.
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("redis health check", err)
	}
	return nil
}
