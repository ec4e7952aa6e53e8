package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/tonvanhoang/BE/pkg/transport"
)

// Connection is the hub-side view of a single transport-layer connection.
// The transport owns the socket; state only references it.
type Connection struct {
	ID        uuid.UUID
	Transport *transport.Connection
	CreatedAt time.Time
}

type RoomKind uint8

const (
	RoomConversation RoomKind = iota + 1
	RoomReel
)

// RoomID is a tagged room identifier. Conversations and reels share one
// identifier namespace on the wire ("42" vs "reel:42"); tagging the kind into
// the value makes a collision between the two spaces impossible.
type RoomID struct {
	kind RoomKind
	id   string
}

func ConversationRoom(id string) RoomID {
	return RoomID{kind: RoomConversation, id: id}
}

func ReelRoom(id string) RoomID {
	return RoomID{kind: RoomReel, id: id}
}

func (r RoomID) Kind() RoomKind { return r.kind }

// EntityID returns the bare conversation or reel id the room wraps.
func (r RoomID) EntityID() string { return r.id }

func (r RoomID) IsZero() bool { return r.kind == 0 && r.id == "" }

func (r RoomID) String() string {
	switch r.kind {
	case RoomConversation:
		return "conversation:" + r.id
	case RoomReel:
		return "reel:" + r.id
	default:
		return r.id
	}
}
