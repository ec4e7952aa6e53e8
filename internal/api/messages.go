package api

import (
	"net/http"

	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/internal/store"
	"github.com/tonvanhoang/BE/pkg/state"
)

type createConversationRequest struct {
	UserID1 string `json:"userId1"`
	UserID2 string `json:"userId2"`
}

func (a *API) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	conv, err := a.store.GetOrCreateConversation(r.Context(), req.UserID1, req.UserID2)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, conv)
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.store.ListMessages(r.Context(), r.PathValue("id"), 50, 0)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	Content        string `json:"content"`
	ReplyToID      string `json:"replyTo,omitempty"`
}

// sendMessage is the persisted half of the dual path: the same fan-out the
// socket handler performs, but only after the write committed.
func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !a.readJSON(w, r, &req) {
		return
	}

	msg := &store.Message{
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
		ReplyToID:      req.ReplyToID,
	}
	if err := a.store.CreateMessage(r.Context(), msg); err != nil {
		a.writeStoreError(w, err)
		return
	}

	room := state.ConversationRoom(msg.ConversationID)
	scope := hub.Room(room)
	// exclude the sender's own connection when they are online
	if senderConn, online := a.state.Lookup(msg.SenderID); online {
		scope = hub.RoomExcluding(room, senderConn)
	}
	a.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventReceiveMessage,
		Payload: msg,
		Scope:   scope,
	})

	if receiverConn, online := a.state.Lookup(msg.ReceiverID); online && !a.state.InRoom(receiverConn, room) {
		a.hub.Publish(hub.BroadcastRequest{
			Event: hub.EventNewMessageNotification,
			Payload: map[string]string{
				"conversationId": msg.ConversationID,
				"senderId":       msg.SenderID,
				"content":        msg.Content,
			},
			Scope: hub.Targeted(msg.ReceiverID),
		})
	}

	a.writeJSON(w, http.StatusCreated, msg)
}

type deleteMessageRequest struct {
	UserID string `json:"userId"`
}

func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request) {
	var req deleteMessageRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	msg, err := a.store.SoftDeleteMessage(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}

	// deletions are unscoped: every room member including the deleter
	a.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventMessageDeleted,
		Payload: map[string]string{"messageId": msg.ID},
		Scope:   hub.Room(state.ConversationRoom(msg.ConversationID)),
	})
	a.writeJSON(w, http.StatusOK, msg)
}
