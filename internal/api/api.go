package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/internal/store"
	"github.com/tonvanhoang/BE/pkg/state"
)

// API is the HTTP completion layer of the dual-path design: every mutating
// handler persists first and only then asks the hub for a broadcast. A write
// that fails is surfaced to the HTTP caller and never broadcast, so clients
// cannot observe phantom events for data that was not persisted.
type API struct {
	logger *slog.Logger
	store  *store.Store
	state  state.Manager
	hub    *hub.Hub
}

func New(logger *slog.Logger, st *store.Store, sm state.Manager, h *hub.Hub) *API {
	return &API{
		logger: logger.With(slog.String("component", "api")),
		store:  st,
		state:  sm,
		hub:    h,
	}
}

// Routes registers all completion endpoints on the mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/conversations", a.createConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", a.listMessages)
	mux.HandleFunc("POST /api/messages", a.sendMessage)
	mux.HandleFunc("DELETE /api/messages/{id}", a.deleteMessage)

	mux.HandleFunc("POST /api/reels/{reelId}/comments", a.addReelComment)
	mux.HandleFunc("POST /api/reels/{reelId}/like", a.toggleReelLike)
	mux.HandleFunc("POST /api/comments/{commentId}/replies", a.addReelReply)
	mux.HandleFunc("POST /api/comments/{commentId}/like", a.toggleCommentLike)
	mux.HandleFunc("POST /api/replies/{replyId}/like", a.toggleReplyLike)

	mux.HandleFunc("POST /api/notifications", a.createNotification)
	mux.HandleFunc("GET /api/notifications/{recipientId}", a.listNotifications)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Failed to encode response", slog.Any("error", err))
	}
}

func (a *API) readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"message": msg})
}

// writeStoreError maps store failures onto HTTP statuses.
func (a *API) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		a.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrForbidden):
		a.writeError(w, http.StatusForbidden, err.Error())
	default:
		a.logger.Error("Store operation failed", slog.Any("error", err))
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
