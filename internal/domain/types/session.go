package types

import "time"

// SessionKey is the identity of a LinkSession within a store.
type SessionKey struct {
	Network    ChainID
	Actor      Name
	Permission Name
	Name       Name
}

// LinkSession binds an on-chain identity to the device key a requesting
// application uses to seal messages for this manager.
type LinkSession struct {
	Actor      Name      `json:"actor"`
	Permission Name      `json:"permission"`
	Name       Name      `json:"name"`
	Network    ChainID   `json:"network"`
	PublicKey  PublicKey `json:"publicKey"`
	Created    Timestamp `json:"created,omitempty"`
	LastUsed   Timestamp `json:"lastUsed,omitempty"`
}

// NewLinkSession returns a session created and last used at now.
func NewLinkSession(
	network ChainID,
	actor, permission, name Name,
	publicKey PublicKey,
	now time.Time,
) LinkSession {
	ts := TimestampOf(now)
	return LinkSession{
		Actor:      actor,
		Permission: permission,
		Name:       name,
		Network:    network,
		PublicKey:  publicKey,
		Created:    ts,
		LastUsed:   ts,
	}
}

// Key returns the identity tuple of the session.
func (s LinkSession) Key() SessionKey {
	return SessionKey{
		Network:    s.Network,
		Actor:      s.Actor,
		Permission: s.Permission,
		Name:       s.Name,
	}
}
