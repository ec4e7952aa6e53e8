package state

import (
	"github.com/google/uuid"
	"github.com/tonvanhoang/BE/pkg/transport"
)

// Manager owns all volatile hub state: the set of live connections, the
// user<->connection presence registry and room memberships. Implementations
// must be safe for concurrent use; every connection runs its own read pump.
type Manager interface {
	// --- Connection lifecycle ---
	RegisterConnection(conn *transport.Connection) (*Connection, error)
	// DeregisterConnection forgets the transport. Unknown ids are a no-op.
	DeregisterConnection(connID uuid.UUID)
	GetConnection(connID uuid.UUID) (*Connection, bool)
	// Connections snapshots every live connection, identified or not.
	Connections() []*Connection

	// --- Presence registry ---
	// Register binds a user identity to a connection. A later Register for
	// the same user supersedes the earlier connection (last writer wins).
	Register(userID string, connID uuid.UUID)
	// Unregister removes the presence entry for the given connection and
	// returns the user it belonged to. The forward entry is only removed
	// when it still points at this exact connection, so a stale disconnect
	// after a reconnect never evicts the newer registration.
	Unregister(connID uuid.UUID) (string, bool)
	// Lookup resolves a user to their current connection, if online.
	Lookup(userID string) (uuid.UUID, bool)
	// UserOf resolves a connection back to its announced identity.
	UserOf(connID uuid.UUID) (string, bool)
	// ListOnline snapshots all currently registered users, unordered.
	ListOnline() []string

	// --- Room membership ---
	// Join and Leave are idempotent; leaving a room the connection never
	// joined is a no-op.
	Join(connID uuid.UUID, room RoomID)
	Leave(connID uuid.UUID, room RoomID)
	// LeaveAll removes the connection from every room it belongs to.
	LeaveAll(connID uuid.UUID)
	RoomMembers(room RoomID) []uuid.UUID
	InRoom(connID uuid.UUID, room RoomID) bool
}
