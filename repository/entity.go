package repository

import (
	"context"
	"time"

	"github.com/wrale/oauth2-device-store/devicecode"
)

// EntityScope is the engine's representation of an OAuth2 scope.
type EntityScope string

// ClientEntity is the engine's view of a client application. The adapter
// only ever needs the identifier; everything else is the engine's business.
type ClientEntity interface {
	Identifier() string
}

// DeviceCodeEntity is the engine-facing shape of a device code session. The
// engine populates a draft obtained from NewDeviceCode and reads
// materialized copies back from GetDeviceCodeEntityByDeviceCode.
type DeviceCodeEntity struct {
	Identifier                     string
	ExpiresAt                      time.Time
	Client                         ClientEntity
	UserIdentifier                 string // empty before approval
	Scopes                         []EntityScope
	UserCode                       string
	UserApproved                   bool
	IncludeVerificationURIComplete bool
	VerificationURI                string
	LastPolledAt                   time.Time // zero until the first poll
	Interval                       int
}

// Client is the resolved domain client reference stored with a device code.
// It is borrowed by identifier, never owned.
type Client struct {
	ID string
}

// ClientManager resolves domain client references when a draft is persisted.
type ClientManager interface {
	// Find returns the client with the given identifier, or an error when no
	// such client exists. A device code must never be stored against an
	// unknown client.
	Find(ctx context.Context, id string) (*Client, error)
}

// ClientManagerFunc adapts a function to the ClientManager interface.
type ClientManagerFunc func(ctx context.Context, id string) (*Client, error)

func (f ClientManagerFunc) Find(ctx context.Context, id string) (*Client, error) {
	return f(ctx, id)
}

// ClientRepository builds the engine's client entity when a stored record is
// materialized outward.
type ClientRepository interface {
	BuildClientEntity(ctx context.Context, id string) (ClientEntity, error)
}

// ClientRepositoryFunc adapts a function to the ClientRepository interface.
type ClientRepositoryFunc func(ctx context.Context, id string) (ClientEntity, error)

func (f ClientRepositoryFunc) BuildClientEntity(ctx context.Context, id string) (ClientEntity, error) {
	return f(ctx, id)
}

// StaticClient is a minimal ClientEntity carrying only an identifier, for
// engines and tools that need nothing more.
type StaticClient string

func (c StaticClient) Identifier() string {
	return string(c)
}

// ScopeConverter translates between the engine's scope representation and
// the domain's, preserving order and multiplicity-free sets in both
// directions.
type ScopeConverter interface {
	ToDomain(scopes []EntityScope) []devicecode.Scope
	ToEntity(scopes []devicecode.Scope) []EntityScope
}

// StringScopeConverter converts scopes by direct string conversion. It suits
// engines whose scope representation is a plain string.
type StringScopeConverter struct{}

func (StringScopeConverter) ToDomain(scopes []EntityScope) []devicecode.Scope {
	if scopes == nil {
		return nil
	}
	out := make([]devicecode.Scope, len(scopes))
	for i, scope := range scopes {
		out[i] = devicecode.Scope(scope)
	}
	return out
}

func (StringScopeConverter) ToEntity(scopes []devicecode.Scope) []EntityScope {
	if scopes == nil {
		return nil
	}
	out := make([]EntityScope, len(scopes))
	for i, scope := range scopes {
		out[i] = EntityScope(scope)
	}
	return out
}
