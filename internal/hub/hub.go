package hub

import (
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tonvanhoang/BE/pkg/state"
)

// Envelope is the outbound wire frame.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub is the presence-and-broadcast core. It owns no sockets and no storage;
// it resolves a BroadcastRequest's scope against the state manager and hands
// the encoded frame to each matching transport. Delivery is best-effort and
// at-most-once: no acknowledgment, no retry, no cross-member ordering.
type Hub struct {
	logger *slog.Logger
	state  state.Manager
}

func New(logger *slog.Logger, st state.Manager) *Hub {
	return &Hub{
		logger: logger.With(slog.String("component", "hub")),
		state:  st,
	}
}

// Publish fans a request out to its scope. Both event-origination paths (the
// socket handlers and the HTTP completion layer) call this and nothing else.
func (h *Hub) Publish(req BroadcastRequest) {
	frame, err := encodeFrame(req.Event, req.Payload)
	if err != nil {
		h.logger.Error("Failed to encode outbound event", slog.String("event", req.Event), slog.Any("error", err))
		return
	}

	switch req.Scope.kind {
	case scopeRoom:
		h.sendToConns(h.state.RoomMembers(req.Scope.room), req.Scope.exclude, frame)
	case scopeGlobal:
		conns := h.state.Connections()
		ids := make([]uuid.UUID, 0, len(conns))
		for _, c := range conns {
			ids = append(ids, c.ID)
		}
		h.sendToConns(ids, req.Scope.exclude, frame)
	case scopeUser:
		connID, ok := h.state.Lookup(req.Scope.userID)
		if !ok {
			// receiver offline: drop, not an error
			h.logger.Debug("Targeted event dropped, user offline", slog.String("event", req.Event), slog.String("userID", req.Scope.userID))
			return
		}
		h.sendToConns([]uuid.UUID{connID}, uuid.Nil, frame)
	default:
		h.logger.Error("Broadcast request with empty scope", slog.String("event", req.Event))
	}
}

func (h *Hub) sendToConns(connIDs []uuid.UUID, exclude uuid.UUID, frame []byte) {
	for _, id := range connIDs {
		if exclude != uuid.Nil && id == exclude {
			continue
		}
		conn, ok := h.state.GetConnection(id)
		if !ok {
			// membership can outlive the connection for a brief moment
			// during teardown; skip silently
			continue
		}
		conn.Transport.Send(frame)
	}
}

// Identify binds the announced user identity to a connection and republishes
// the global online-user list. Until a connection identifies it can join
// rooms and receive room broadcasts but is invisible to presence queries and
// targeted delivery.
func (h *Hub) Identify(userID string, connID uuid.UUID) {
	if userID == "" {
		return
	}
	h.state.Register(userID, connID)
	h.logger.Info("User identified", slog.String("userID", userID), slog.String("connID", connID.String()))
	h.publishOnlineUsers()
}

// Disconnect tears down everything the connection held: presence entry (only
// if it is still the current one for its user), all room memberships, and
// the connection record itself. Fires the presence republish plus the
// user_disconnected event when a registered user actually went offline.
func (h *Hub) Disconnect(connID uuid.UUID) {
	userID, wasCurrent := h.state.Unregister(connID)
	h.state.LeaveAll(connID)
	h.state.DeregisterConnection(connID)

	if wasCurrent {
		h.logger.Info("User went offline", slog.String("userID", userID), slog.String("connID", connID.String()))
		h.publishOnlineUsers()
		h.Publish(BroadcastRequest{
			Event:   EventUserDisconnected,
			Payload: userID,
			Scope:   Global(),
		})
	}
}

// publishOnlineUsers recomputes the full online list and broadcasts it to
// every connection. No batching: each connect and disconnect republishes.
func (h *Hub) publishOnlineUsers() {
	h.Publish(BroadcastRequest{
		Event:   EventOnlineUsers,
		Payload: h.state.ListOnline(),
		Scope:   Global(),
	})
}

func encodeFrame(event string, payload any) ([]byte, error) {
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %q envelope: %w", event, err)
	}
	return frame, nil
}
