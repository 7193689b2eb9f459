// Package token issues and classifies the opaque bearer tokens that stand in
// for accounts. The c-/u- prefixes exist purely so humans can tell tokens
// apart in logs; authorization always compares full values.
package token

import "github.com/google/uuid"

// Role is the outcome of classifying a token against a room's state.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleNone   Role = "unauthorized"
)

// NewOwner returns a fresh creator token. UUIDv4 randomness makes collisions
// across the process lifetime negligible.
func NewOwner() string {
	return "c-" + uuid.NewString()
}

// NewMember returns a fresh joined-member token.
func NewMember() string {
	return "u-" + uuid.NewString()
}

// Classify compares tok against the room's stored owner token and membership.
// The prefix is never consulted: a forged "c-" token that does not equal the
// stored owner value classifies like any other string.
func Classify(tok, ownerToken string, isMember bool) Role {
	if tok != "" && tok == ownerToken {
		return RoleOwner
	}
	if isMember {
		return RoleMember
	}
	return RoleNone
}
