package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/pkg/state"
)

func (r *EventRouter) handleUserConnected(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	userID := idField(payload, "userId")
	if userID == "" {
		r.logger.Warn("user_connected without a user id", slog.String("connID", conn.ID.String()))
		return
	}
	r.hub.Identify(userID, conn.ID)
}

func (r *EventRouter) handleJoinConversation(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	conversationID := idField(payload, "conversationId")
	if conversationID == "" {
		r.logger.Warn("join_conversation without a conversation id", slog.String("connID", conn.ID.String()))
		return
	}
	r.state.Join(conn.ID, state.ConversationRoom(conversationID))
}

func (r *EventRouter) handleJoinReel(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	reelID := idField(payload, "reelId")
	if reelID == "" {
		r.logger.Warn("joinReel without a reel id", slog.String("connID", conn.ID.String()))
		return
	}
	r.state.Join(conn.ID, state.ReelRoom(reelID))
}

func (r *EventRouter) handleLeaveReel(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	reelID := idField(payload, "reelId")
	if reelID == "" {
		return
	}
	r.state.Leave(conn.ID, state.ReelRoom(reelID))
}

func (r *EventRouter) handleSendMessage(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	r.fanOutMessage(conn, payload, "send_message")
}

func (r *EventRouter) handleSendReply(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	r.fanOutMessage(conn, payload, "send_reply")
}

// fanOutMessage delivers a chat message to its conversation room with the
// sender excluded, plus a direct notification to the receiver when they are
// online but not subscribed to the room.
func (r *EventRouter) fanOutMessage(conn *state.Connection, payload json.RawMessage, event string) {
	var msg messagePayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Warn("Malformed message payload", slog.String("event", event), slog.Any("error", err))
		return
	}
	if msg.ConversationID == "" || msg.SenderID == "" {
		r.logger.Warn("Incomplete message payload", slog.String("event", event), slog.String("connID", conn.ID.String()))
		return
	}

	room := state.ConversationRoom(msg.ConversationID)
	r.hub.Publish(hub.BroadcastRequest{
		Event: hub.EventReceiveMessage,
		Payload: receiveMessage{
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			ReceiverID:     msg.ReceiverID,
			Content:        msg.Content,
			ReplyTo:        msg.ReplyTo,
			Timestamp:      time.Now().UTC(),
		},
		Scope: hub.RoomExcluding(room, conn.ID),
	})

	if msg.ReceiverID == "" {
		return
	}
	receiverConn, online := r.state.Lookup(msg.ReceiverID)
	if !online || r.state.InRoom(receiverConn, room) {
		// in-room members already got receive_message; offline receivers
		// are simply skipped
		return
	}
	r.hub.Publish(hub.BroadcastRequest{
		Event: hub.EventNewMessageNotification,
		Payload: messageNotification{
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
		},
		Scope: hub.Targeted(msg.ReceiverID),
	})
}

func (r *EventRouter) handleTyping(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	r.relayTyping(conn, payload, true)
}

func (r *EventRouter) handleStopTyping(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	r.relayTyping(conn, payload, false)
}

// relayTyping is purely transient: nothing is persisted and an offline
// receiver means the event evaporates.
func (r *EventRouter) relayTyping(conn *state.Connection, payload json.RawMessage, isTyping bool) {
	var p typingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed typing payload", slog.Any("error", err))
		return
	}
	if p.ReceiverID == "" {
		r.logger.Warn("Typing event without a receiver", slog.String("connID", conn.ID.String()))
		return
	}
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventUserTyping,
		Payload: userTyping{SenderID: p.SenderID, IsTyping: isTyping},
		Scope:   hub.Targeted(p.ReceiverID),
	})
}

func (r *EventRouter) handleDeleteMessage(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p deleteMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed delete_message payload", slog.Any("error", err))
		return
	}
	if p.ConversationID == "" || p.MessageID == "" {
		r.logger.Warn("Incomplete delete_message payload", slog.String("connID", conn.ID.String()))
		return
	}
	// deletion goes to every member, the deleter included
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventMessageDeleted,
		Payload: messageDeleted{MessageID: p.MessageID},
		Scope:   hub.Room(state.ConversationRoom(p.ConversationID)),
	})
}

func (r *EventRouter) handleNewReelComment(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p reelCommentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed new_reel_comment payload", slog.Any("error", err))
		return
	}
	if p.ReelID == "" {
		return
	}
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventReelCommentReceived,
		Payload: reelCommentPayload{ReelID: p.ReelID, Comment: p.Comment},
		Scope:   hub.RoomExcluding(state.ReelRoom(p.ReelID), conn.ID),
	})
}

func (r *EventRouter) handleNewReelLike(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p reelLikePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed new_reel_like payload", slog.Any("error", err))
		return
	}
	if p.ReelID == "" {
		return
	}
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventReelLikeReceived,
		Payload: reelLikePayload{ReelID: p.ReelID, UserID: p.UserID},
		Scope:   hub.GlobalExcluding(conn.ID),
	})
}

func (r *EventRouter) handleNewComment(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p reelCommentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed newComment payload", slog.Any("error", err))
		return
	}
	if p.ReelID == "" {
		return
	}
	// authoritative created event: unscoped within the reel room
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventNewComment,
		Payload: p.Comment,
		Scope:   hub.Room(state.ReelRoom(p.ReelID)),
	})
}

func (r *EventRouter) handleNewReply(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p reelReplyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed newReply payload", slog.Any("error", err))
		return
	}
	if p.ReelID == "" || p.CommentID == "" {
		return
	}
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventNewReply,
		Payload: replyEcho{CommentID: p.CommentID, Reply: p.Reply},
		Scope:   hub.Room(state.ReelRoom(p.ReelID)),
	})
}

func (r *EventRouter) handleCommentLikeUpdate(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p commentLikePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed commentLikeUpdate payload", slog.Any("error", err))
		return
	}
	if p.ReelID == "" || p.CommentID == "" {
		return
	}
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventCommentLikeUpdate,
		Payload: commentLikeEcho{CommentID: p.CommentID, Likes: p.Likes, IsLiked: p.IsLiked},
		Scope:   hub.Room(state.ReelRoom(p.ReelID)),
	})
}

func (r *EventRouter) handleReplyLikeUpdate(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p replyLikePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed replyLikeUpdate payload", slog.Any("error", err))
		return
	}
	if p.ReelID == "" || p.CommentID == "" {
		return
	}
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventReplyLikeUpdate,
		Payload: replyLikeEcho{CommentID: p.CommentID, ReplyID: p.ReplyID, Likes: p.Likes, IsLiked: p.IsLiked},
		Scope:   hub.Room(state.ReelRoom(p.ReelID)),
	})
}

func (r *EventRouter) handleReelLikeUpdate(_ context.Context, conn *state.Connection, payload json.RawMessage) {
	var p reelLikeUpdate
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("Malformed reelLikeUpdate payload", slog.Any("error", err))
		return
	}
	if p.ReelID == "" {
		return
	}
	// reel likes are surfaced on every feed, not just the reel room
	r.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventReelLikeUpdate,
		Payload: p,
		Scope:   hub.Global(),
	})
}
