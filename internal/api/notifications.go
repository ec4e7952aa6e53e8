package api

import (
	"net/http"

	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/internal/store"
)

type createNotificationRequest struct {
	RecipientID string `json:"recipientId"`
	SenderID    string `json:"senderId"`
	Kind        string `json:"kind"`
	PostID      string `json:"postId,omitempty"`
	Content     string `json:"content"`
}

func (a *API) createNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	n := &store.Notification{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Kind:        req.Kind,
		PostID:      req.PostID,
		Content:     req.Content,
	}
	if err := a.store.CreateNotification(r.Context(), n); err != nil {
		a.writeStoreError(w, err)
		return
	}

	a.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventNewNotification,
		Payload: n,
		Scope:   hub.Global(),
	})
	a.writeJSON(w, http.StatusCreated, n)
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	ns, err := a.store.ListNotifications(r.Context(), r.PathValue("recipientId"))
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, ns)
}
