// internal/authority/authority.go
package authority

import (
	"github.com/gagliardetto/solana-go"
)

// Authority is an optional principal attached to a ledger account
// (mint authority, freeze authority, close authority).
// The zero value is None. A Controlled authority can only move to None
// through Revoke; there is no way back.
type Authority struct {
	key        solana.PublicKey
	controlled bool
}

// None returns an authority with no principal.
func None() Authority {
	return Authority{}
}

// Controlled returns an authority held by key.
func Controlled(key solana.PublicKey) Authority {
	return Authority{key: key, controlled: true}
}

// FromOptional builds an Authority from an optional key.
func FromOptional(key *solana.PublicKey) Authority {
	if key == nil {
		return None()
	}
	return Controlled(*key)
}

// Key returns the controlling principal, if any.
func (a Authority) Key() (solana.PublicKey, bool) {
	return a.key, a.controlled
}

// Optional returns the controlling principal as a pointer, nil for None.
func (a Authority) Optional() *solana.PublicKey {
	if !a.controlled {
		return nil
	}
	key := a.key
	return &key
}

// IsNone reports whether no principal controls the authority.
func (a Authority) IsNone() bool {
	return !a.controlled
}

// Is reports whether the authority is controlled by key.
func (a Authority) Is(key solana.PublicKey) bool {
	return a.controlled && a.key.Equals(key)
}

// Revoke returns None. Revocation is one-way.
func (a Authority) Revoke() Authority {
	return None()
}

func (a Authority) String() string {
	if !a.controlled {
		return "none"
	}
	return a.key.String()
}
