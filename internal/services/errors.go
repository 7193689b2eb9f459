package services

import "errors"

// Expected outcomes, surfaced to callers as structured responses rather than
// logged as faults. A room whose TTL lapsed is indistinguishable from one
// that never existed.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUnauthorized = errors.New("unauthorized")
)
