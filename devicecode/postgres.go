package devicecode

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wrale/oauth2-device-store/validation"
)

const deviceCodeSchema = `CREATE TABLE IF NOT EXISTS device_codes (
	device_code TEXT PRIMARY KEY,
	user_code TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	client_id TEXT NOT NULL,
	user_id TEXT,
	scopes TEXT[],
	status TEXT NOT NULL,
	verification_uri TEXT NOT NULL,
	include_verification_uri_complete BOOLEAN NOT NULL DEFAULT FALSE,
	last_polled_at TIMESTAMPTZ,
	interval_seconds INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS device_codes_user_code_idx ON device_codes (upper(replace(user_code, '-', '')));`

const deviceCodeColumns = `device_code, user_code, expires_at, client_id, user_id, scopes, status, verification_uri, include_verification_uri_complete, last_polled_at, interval_seconds`

// PostgresStore implements Store backed by PostgreSQL. One row per device
// code, keyed by identifier; the user-code index is filtered to unexpired
// rows at query time.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed store using the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the device_codes table and its user-code index if
// they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, deviceCodeSchema); err != nil {
		return unavailable("creating device_codes schema", err)
	}
	return nil
}

// Find returns the row for the given device code, or nil when absent.
func (s *PostgresStore) Find(ctx context.Context, deviceCode string) (*DeviceCode, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+deviceCodeColumns+` FROM device_codes WHERE device_code = $1`, deviceCode)
	return scanDeviceCode(row)
}

// FindByUserCode returns the unexpired row registered under the given user
// code, or nil when absent or expired.
func (s *PostgresStore) FindByUserCode(ctx context.Context, userCode string) (*DeviceCode, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+deviceCodeColumns+` FROM device_codes WHERE upper(replace(user_code, '-', '')) = $1 AND expires_at > NOW()`,
		validation.NormalizeCode(userCode))
	return scanDeviceCode(row)
}

// Insert writes a brand-new row. The primary key on device_code makes the
// existence check and the write atomic across processes; a unique violation
// maps to ErrDuplicateIdentifier.
func (s *PostgresStore) Insert(ctx context.Context, code *DeviceCode) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO device_codes (`+deviceCodeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		encodeDeviceCode(code)...,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateIdentifier
		}
		return unavailable("inserting device code", err)
	}
	return nil
}

// Save upserts the row under its device code identifier.
func (s *PostgresStore) Save(ctx context.Context, code *DeviceCode) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO device_codes (`+deviceCodeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (device_code) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			status = EXCLUDED.status,
			last_polled_at = EXCLUDED.last_polled_at`,
		encodeDeviceCode(code)...,
	)
	if err != nil {
		return unavailable("saving device code", err)
	}
	return nil
}

// encodeDeviceCode produces the query arguments for deviceCodeColumns.
func encodeDeviceCode(code *DeviceCode) []any {
	scopes := make([]string, len(code.Scopes))
	for i, scope := range code.Scopes {
		scopes[i] = string(scope)
	}

	var userID any
	if code.UserID != "" {
		userID = code.UserID
	}
	var lastPolledAt any
	if !code.LastPolledAt.IsZero() {
		lastPolledAt = code.LastPolledAt.UTC()
	}

	return []any{
		code.DeviceCode,
		code.UserCode,
		code.ExpiresAt.UTC(),
		code.ClientID,
		userID,
		scopes,
		string(code.Status),
		code.VerificationURI,
		code.IncludeVerificationURIComplete,
		lastPolledAt,
		code.Interval,
	}
}

// ClearExpired deletes every row whose expiry has passed and returns the
// number removed.
func (s *PostgresStore) ClearExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM device_codes WHERE expires_at < NOW()`)
	if err != nil {
		return 0, unavailable("clearing expired device codes", err)
	}
	return int(tag.RowsAffected()), nil
}

// CheckHealth verifies database connectivity.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("postgres health check", err)
	}
	return nil
}

func scanDeviceCode(row pgx.Row) (*DeviceCode, error) {
	var (
		code     DeviceCode
		userID   sql.NullString
		scopes   []string
		status   string
		polledAt sql.NullTime
	)
	if err := row.Scan(
		&code.DeviceCode,
		&code.UserCode,
		&code.ExpiresAt,
		&code.ClientID,
		&userID,
		&scopes,
		&status,
		&code.VerificationURI,
		&code.IncludeVerificationURIComplete,
		&polledAt,
		&code.Interval,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable("scanning device code", err)
	}
	if userID.Valid {
		code.UserID = userID.String
	}
	if polledAt.Valid {
		code.LastPolledAt = polledAt.Time.UTC()
	}
	code.Status = Status(status)
	if len(scopes) > 0 {
		code.Scopes = make([]Scope, len(scopes))
		for i, scope := range scopes {
			code.Scopes[i] = Scope(scope)
		}
	}
	code.ExpiresAt = code.ExpiresAt.UTC()
	return &code, nil
}
