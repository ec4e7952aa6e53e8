package statemanager

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tonvanhoang/BE/pkg/state"
	"github.com/tonvanhoang/BE/pkg/transport"
)

type InMemoryManager struct {
	conns map[uuid.UUID]*state.Connection

	// Presence registry: the two maps must stay mutually consistent. Every
	// mutation happens under presenceMu so no caller can observe one side
	// updated without the other.
	byUser map[string]uuid.UUID
	byConn map[uuid.UUID]string

	rooms       map[state.RoomID]map[uuid.UUID]struct{}
	roomsByConn map[uuid.UUID]map[state.RoomID]struct{}

	connMu     sync.RWMutex
	presenceMu sync.RWMutex
	roomMu     sync.RWMutex

	logger *slog.Logger
}

func NewInMemoryManager(logger *slog.Logger) *InMemoryManager {
	return &InMemoryManager{
		conns:       make(map[uuid.UUID]*state.Connection),
		byUser:      make(map[string]uuid.UUID),
		byConn:      make(map[uuid.UUID]string),
		rooms:       make(map[state.RoomID]map[uuid.UUID]struct{}),
		roomsByConn: make(map[uuid.UUID]map[state.RoomID]struct{}),
		logger:      logger.With(slog.String("component", "state_manager_inmemory")),
	}
}

// compile-time check to ensure InMemoryManager implements Manager.
var _ state.Manager = (*InMemoryManager)(nil)

// --- Connection lifecycle ---

func (m *InMemoryManager) RegisterConnection(conn *transport.Connection) (*state.Connection, error) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	connID := conn.ID()
	if _, exists := m.conns[connID]; exists {
		return nil, errors.New("connection is already registered")
	}
	newConn := &state.Connection{
		ID:        connID,
		Transport: conn,
		CreatedAt: time.Now(),
	}
	m.conns[connID] = newConn
	m.logger.Debug("Connection registered", slog.String("connID", connID.String()))
	return newConn, nil
}

func (m *InMemoryManager) DeregisterConnection(connID uuid.UUID) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	if _, ok := m.conns[connID]; !ok {
		// already deregistered
		return
	}
	delete(m.conns, connID)
	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()))
}

func (m *InMemoryManager) GetConnection(connID uuid.UUID) (*state.Connection, bool) {
	m.connMu.RLock()
	defer m.connMu.RUnlock()
	conn, ok := m.conns[connID]
	return conn, ok
}

func (m *InMemoryManager) Connections() []*state.Connection {
	m.connMu.RLock()
	defer m.connMu.RUnlock()

	conns := make([]*state.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	return conns
}

// --- Presence registry ---

func (m *InMemoryManager) Register(userID string, connID uuid.UUID) {
	m.presenceMu.Lock()
	defer m.presenceMu.Unlock()

	// Last writer wins: a reconnect supersedes the previous connection. The
	// superseded reverse entry is dropped here so the two maps never drift;
	// the old connection's eventual disconnect then resolves to a no-op.
	if old, ok := m.byUser[userID]; ok && old != connID {
		delete(m.byConn, old)
		m.logger.Debug("Presence superseded", slog.String("userID", userID), slog.String("oldConnID", old.String()))
	}
	// A connection re-announcing a different identity releases its old one.
	if prevUser, ok := m.byConn[connID]; ok && prevUser != userID {
		if m.byUser[prevUser] == connID {
			delete(m.byUser, prevUser)
		}
	}

	m.byUser[userID] = connID
	m.byConn[connID] = userID
	m.logger.Debug("User registered", slog.String("userID", userID), slog.String("connID", connID.String()))
}

func (m *InMemoryManager) Unregister(connID uuid.UUID) (string, bool) {
	m.presenceMu.Lock()
	defer m.presenceMu.Unlock()

	userID, ok := m.byConn[connID]
	if !ok {
		// anonymous or already unregistered: not an error
		return "", false
	}
	delete(m.byConn, connID)

	// Remove the forward entry only while it still points at this exact
	// connection. A stale disconnect after a reconnect must never evict the
	// newer registration.
	if current, ok := m.byUser[userID]; ok && current == connID {
		delete(m.byUser, userID)
		m.logger.Debug("User unregistered", slog.String("userID", userID), slog.String("connID", connID.String()))
		return userID, true
	}
	return "", false
}

func (m *InMemoryManager) Lookup(userID string) (uuid.UUID, bool) {
	m.presenceMu.RLock()
	defer m.presenceMu.RUnlock()
	connID, ok := m.byUser[userID]
	return connID, ok
}

func (m *InMemoryManager) UserOf(connID uuid.UUID) (string, bool) {
	m.presenceMu.RLock()
	defer m.presenceMu.RUnlock()
	userID, ok := m.byConn[connID]
	return userID, ok
}

func (m *InMemoryManager) ListOnline() []string {
	m.presenceMu.RLock()
	defer m.presenceMu.RUnlock()

	users := make([]string, 0, len(m.byUser))
	for userID := range m.byUser {
		users = append(users, userID)
	}
	return users
}

// --- Room membership ---

func (m *InMemoryManager) Join(connID uuid.UUID, room state.RoomID) {
	if room.IsZero() {
		return
	}
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	members, ok := m.rooms[room]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		m.rooms[room] = members
	}
	members[connID] = struct{}{}

	joined, ok := m.roomsByConn[connID]
	if !ok {
		joined = make(map[state.RoomID]struct{})
		m.roomsByConn[connID] = joined
	}
	joined[room] = struct{}{}

	m.logger.Debug("Connection joined room", slog.String("connID", connID.String()), slog.String("roomID", room.String()))
}

func (m *InMemoryManager) Leave(connID uuid.UUID, room state.RoomID) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()
	m.leaveLocked(connID, room)
}

func (m *InMemoryManager) LeaveAll(connID uuid.UUID) {
	m.roomMu.Lock()
	defer m.roomMu.Unlock()

	for room := range m.roomsByConn[connID] {
		m.leaveLocked(connID, room)
	}
}

func (m *InMemoryManager) leaveLocked(connID uuid.UUID, room state.RoomID) {
	members, ok := m.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	// remove the room once empty, for memory hygiene
	if len(members) == 0 {
		delete(m.rooms, room)
	}

	if joined, ok := m.roomsByConn[connID]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(m.roomsByConn, connID)
		}
	}
	m.logger.Debug("Connection left room", slog.String("connID", connID.String()), slog.String("roomID", room.String()))
}

func (m *InMemoryManager) RoomMembers(room state.RoomID) []uuid.UUID {
	m.roomMu.RLock()
	defer m.roomMu.RUnlock()

	members := make([]uuid.UUID, 0, len(m.rooms[room]))
	for connID := range m.rooms[room] {
		members = append(members, connID)
	}
	return members
}

func (m *InMemoryManager) InRoom(connID uuid.UUID, room state.RoomID) bool {
	m.roomMu.RLock()
	defer m.roomMu.RUnlock()
	_, ok := m.rooms[room][connID]
	return ok
}
