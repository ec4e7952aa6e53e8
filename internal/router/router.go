package router

import (
	"context"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/pkg/state"
)

// HandlerFunc processes one inbound event on behalf of a connection.
type HandlerFunc func(ctx context.Context, conn *state.Connection, payload json.RawMessage)

// EventRouter dispatches inbound wire events to their typed handlers and
// resolves each event's delivery scope. Per connection, events arrive in
// read-pump order; across connections no ordering is guaranteed.
type EventRouter struct {
	logger   *slog.Logger
	state    state.Manager
	hub      *hub.Hub
	handlers map[string]HandlerFunc
}

func New(logger *slog.Logger, st state.Manager, h *hub.Hub) *EventRouter {
	r := &EventRouter{
		logger:   logger.With(slog.String("component", "event_router")),
		state:    st,
		hub:      h,
		handlers: make(map[string]HandlerFunc),
	}
	r.registerHandlers()
	return r
}

func (r *EventRouter) registerHandlers() {
	r.handlers[eventUserConnected] = r.handleUserConnected
	r.handlers[eventJoinConversation] = r.handleJoinConversation
	r.handlers[eventJoinReel] = r.handleJoinReel
	r.handlers[eventLeaveReel] = r.handleLeaveReel
	r.handlers[eventSendMessage] = r.handleSendMessage
	r.handlers[eventSendReply] = r.handleSendReply
	r.handlers[eventTyping] = r.handleTyping
	r.handlers[eventStopTyping] = r.handleStopTyping
	r.handlers[eventDeleteMessage] = r.handleDeleteMessage
	r.handlers[eventNewReelComment] = r.handleNewReelComment
	r.handlers[eventNewReelLike] = r.handleNewReelLike
	r.handlers[eventNewComment] = r.handleNewComment
	r.handlers[eventNewReply] = r.handleNewReply
	r.handlers[eventCommentLike] = r.handleCommentLikeUpdate
	r.handlers[eventReplyLike] = r.handleReplyLikeUpdate
	r.handlers[eventReelLike] = r.handleReelLikeUpdate
}

// HandleMessage is the transport's message callback. Malformed frames and
// unknown events are logged and dropped; the sender never sees an error.
func (r *EventRouter) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var clientMsg ClientMessage
	if err := json.Unmarshal(msg, &clientMsg); err != nil {
		r.logger.Warn("Failed to unmarshal client message", slog.String("connID", connID.String()), slog.Any("error", err))
		return
	}

	handler, ok := r.handlers[clientMsg.Event]
	if !ok {
		r.logger.Warn("Received unknown event", slog.String("event", clientMsg.Event), slog.String("connID", connID.String()))
		return
	}

	conn, ok := r.state.GetConnection(connID)
	if !ok {
		r.logger.Error("No connection profile for active connection", slog.String("connID", connID.String()))
		return
	}

	r.logger.Debug("Dispatching event", slog.String("event", clientMsg.Event), slog.String("connID", connID.String()))
	handler(ctx, conn, clientMsg.Payload)
}

// HandleClose is the transport's close callback: tears down presence and
// memberships for the departed connection.
func (r *EventRouter) HandleClose(connID uuid.UUID, err error) {
	r.logger.Debug("Connection closed", slog.String("connID", connID.String()), slog.Any("reason", err))
	r.hub.Disconnect(connID)
}

// idField extracts an identifier that socket.io clients send either as a bare
// JSON string payload or as a field of an object payload.
func idField(payload json.RawMessage, field string) string {
	parsed := gjson.ParseBytes(payload)
	if parsed.Type == gjson.String {
		return parsed.String()
	}
	return parsed.Get(field).String()
}
