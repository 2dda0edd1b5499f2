package common

import "errors"

// ErrUnauthorizedSource is returned when a mutating notification arrives from a
// caller other than the registered event source.
var ErrUnauthorizedSource = errors.New("unauthorized event source")

// SourceAuthorizer decides whether a caller may deliver liquidity notifications.
// The pool-management runtime that hosts the engine registers exactly one
// authorized source; everything else is rejected.
type SourceAuthorizer interface {
	Authorized(caller [20]byte) bool
}

// StaticSource authorizes a single fixed caller address.
type StaticSource [20]byte

// Authorized implements the SourceAuthorizer interface.
func (s StaticSource) Authorized(caller [20]byte) bool {
	return [20]byte(s) == caller
}

// Guard runs the authorization predicate for a mutating entry point. A nil
// authorizer rejects everything; an engine must be wired explicitly before it
// accepts notifications.
func Guard(auth SourceAuthorizer, caller [20]byte) error {
	if auth == nil || !auth.Authorized(caller) {
		return ErrUnauthorizedSource
	}
	return nil
}
