// Package devicecode tracks OAuth 2.0 Device Authorization Grant sessions
// per RFC 8628: the device codes a client application polls with, the user
// codes a person enters on a second device, and their approval, revocation
// and expiry state.
package devicecode

import "time"

// Scope is an opaque OAuth2 scope value requested or granted for a session.
type Scope string

// Status is the lifecycle tag of a device code. Transitions are one-way:
// pending may become approved or revoked, approved may become revoked, and
// revoked is absorbing. Expiry is not a status; it is derived from ExpiresAt
// at read time.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRevoked  Status = "revoked"
)

// DeviceCode is one device authorization session. DeviceCode and UserCode
// are immutable once created; everything else mutates through the store's
// find-mutate-save cycle.
type DeviceCode struct {
	DeviceCode string    `json:"device_code"`       // unique machine-held code
	UserCode   string    `json:"user_code"`         // short human-entered code
	ExpiresAt  time.Time `json:"expires_at"`        // absolute expiry, set once
	ClientID   string    `json:"client_id"`         // owning client, by identifier
	UserID     string    `json:"user_id,omitempty"` // set by approval, empty before
	Scopes     []Scope   `json:"scopes,omitempty"`
	Status     Status    `json:"status"`

	VerificationURI                string `json:"verification_uri"`
	IncludeVerificationURIComplete bool   `json:"include_verification_uri_complete"`

	LastPolledAt time.Time `json:"last_polled_at,omitempty"` // zero until the first poll
	Interval     int       `json:"interval"`                 // minimum seconds between polls
}

// Expired reports whether the code's expiry has passed at the given time.
// Expired codes may still be physically present until a sweep runs; every
// read path must treat them as unusable regardless.
func (d *DeviceCode) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// Revoked reports whether the code has been explicitly revoked.
func (d *DeviceCode) Revoked() bool {
	return d.Status == StatusRevoked
}

// UserApproved reports whether the user completed the approval action.
func (d *DeviceCode) UserApproved() bool {
	return d.Status == StatusApproved
}

// Approve records the approving user. It only acts on a pending code, so a
// revoked code can never become approved.
func (d *DeviceCode) Approve(userID string) {
	if d.Status != StatusPending {
		return
	}
	d.Status = StatusApproved
	d.UserID = userID
}

// Revoke moves the code to the revoked state. Revocation is absorbing; there
// is no way back.
func (d *DeviceCode) Revoke() {
	d.Status = StatusRevoked
}

// clone returns a copy that shares no mutable state with the receiver, so
// store snapshots cannot be mutated behind the store's back.
func (d *DeviceCode) clone() *DeviceCode {
	c := *d
	if d.Scopes != nil {
		c.Scopes = append([]Scope(nil), d.Scopes...)
	}
	return &c
}
