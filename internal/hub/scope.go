package hub

import (
	"github.com/google/uuid"
	"github.com/tonvanhoang/BE/pkg/state"
)

type scopeKind uint8

const (
	scopeRoom scopeKind = iota + 1
	scopeGlobal
	scopeUser
)

// Scope describes the set of connections a broadcast is delivered to: one
// room, every connection, or a single user's connection. Room and global
// scopes can exclude the originating connection for sender-echo patterns.
type Scope struct {
	kind    scopeKind
	room    state.RoomID
	userID  string
	exclude uuid.UUID
}

func Room(room state.RoomID) Scope {
	return Scope{kind: scopeRoom, room: room}
}

func RoomExcluding(room state.RoomID, sender uuid.UUID) Scope {
	return Scope{kind: scopeRoom, room: room, exclude: sender}
}

func Global() Scope {
	return Scope{kind: scopeGlobal}
}

func GlobalExcluding(sender uuid.UUID) Scope {
	return Scope{kind: scopeGlobal, exclude: sender}
}

// Targeted addresses the single connection currently registered for userID.
// If the user is offline the broadcast is silently dropped.
func Targeted(userID string) Scope {
	return Scope{kind: scopeUser, userID: userID}
}

// BroadcastRequest is the one normalized form every domain event takes before
// fan-out, regardless of whether it originated on a socket or on the HTTP
// layer after a persisted write. The two paths are logically equivalent but
// not idempotent: clients may see duplicates and are expected to tolerate
// them.
type BroadcastRequest struct {
	Event   string
	Payload any
	Scope   Scope
}
