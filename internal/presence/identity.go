// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

// Package presence tracks which users are currently on the site. Every
// websocket connection is registered under an identity; the active-user count
// is the number of distinct identities, so five tabs from one account still
// count as one person.
package presence

import "fmt"

// IdentityKind discriminates how a connection was identified.
type IdentityKind int

const (
	// KindUser is an authenticated account.
	KindUser IdentityKind = iota
	// KindAnon is an anonymous visitor with a browser-scoped cookie ID.
	KindAnon
	// KindConn is the last-resort fallback: the connection is its own
	// identity, so it always counts as exactly one user.
	KindConn
)

// Identity is the resolved owner of a connection. Resolution prefers the
// authenticated user, falls back to the anonymous cookie ID, and finally to
// the connection ID itself so no connection is ever dropped from the count.
type Identity struct {
	Kind IdentityKind
	ID   string
}

// UserIdentity returns an identity for an authenticated account.
func UserIdentity(userID string) Identity {
	return Identity{Kind: KindUser, ID: userID}
}

// AnonIdentity returns an identity for an anonymous visitor.
func AnonIdentity(anonID string) Identity {
	return Identity{Kind: KindAnon, ID: anonID}
}

// ConnIdentity returns the fallback identity for an unidentifiable connection.
func ConnIdentity(connectionID string) Identity {
	return Identity{Kind: KindConn, ID: connectionID}
}

// Resolve picks the strongest available identity for a connection.
func Resolve(userID, anonID, connectionID string) Identity {
	switch {
	case userID != "":
		return UserIdentity(userID)
	case anonID != "":
		return AnonIdentity(anonID)
	default:
		return ConnIdentity(connectionID)
	}
}

// Key returns the registry key for this identity. Keys are namespaced by kind
// so an anonymous ID can never collide with a user ID.
func (i Identity) Key() string {
	switch i.Kind {
	case KindUser:
		return "user:" + i.ID
	case KindAnon:
		return "anon:" + i.ID
	case KindConn:
		return "conn:" + i.ID
	default:
		return fmt.Sprintf("unknown:%s", i.ID)
	}
}

// Authenticated reports whether the identity belongs to a logged-in account.
func (i Identity) Authenticated() bool {
	return i.Kind == KindUser
}
