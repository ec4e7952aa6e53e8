package api

import (
	"net/http"

	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/internal/store"
	"github.com/tonvanhoang/BE/pkg/state"
)

type addCommentRequest struct {
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

func (a *API) addReelComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	comment := &store.ReelComment{
		ReelID:   r.PathValue("reelId"),
		AuthorID: req.AuthorID,
		Content:  req.Content,
	}
	if err := a.store.AddReelComment(r.Context(), comment); err != nil {
		a.writeStoreError(w, err)
		return
	}

	// authoritative created event: the whole reel room, author included
	a.hub.Publish(hub.BroadcastRequest{
		Event:   hub.EventNewComment,
		Payload: comment,
		Scope:   hub.Room(state.ReelRoom(comment.ReelID)),
	})
	a.writeJSON(w, http.StatusCreated, comment)
}

type addReplyRequest struct {
	ReelID   string `json:"reelId"`
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

func (a *API) addReelReply(w http.ResponseWriter, r *http.Request) {
	var req addReplyRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	reply := &store.ReelReply{
		CommentID: r.PathValue("commentId"),
		AuthorID:  req.AuthorID,
		Content:   req.Content,
	}
	if err := a.store.AddReelReply(r.Context(), reply); err != nil {
		a.writeStoreError(w, err)
		return
	}

	a.hub.Publish(hub.BroadcastRequest{
		Event: hub.EventNewReply,
		Payload: map[string]any{
			"commentId": reply.CommentID,
			"reply":     reply,
		},
		Scope: hub.Room(state.ReelRoom(req.ReelID)),
	})
	a.writeJSON(w, http.StatusCreated, reply)
}

type likeRequest struct {
	ReelID    string `json:"reelId"`
	CommentID string `json:"commentId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

func (a *API) toggleCommentLike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	comment, err := a.store.ToggleCommentLike(r.Context(), r.PathValue("commentId"))
	if err != nil {
		a.writeStoreError(w, err)
		return
	}

	a.hub.Publish(hub.BroadcastRequest{
		Event: hub.EventCommentLikeUpdate,
		Payload: map[string]any{
			"commentId": comment.ID,
			"likes":     comment.Likes,
			"isLiked":   comment.IsLiked,
		},
		Scope: hub.Room(state.ReelRoom(comment.ReelID)),
	})
	a.writeJSON(w, http.StatusOK, comment)
}

func (a *API) toggleReplyLike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	reply, err := a.store.ToggleReplyLike(r.Context(), r.PathValue("replyId"))
	if err != nil {
		a.writeStoreError(w, err)
		return
	}

	a.hub.Publish(hub.BroadcastRequest{
		Event: hub.EventReplyLikeUpdate,
		Payload: map[string]any{
			"commentId": reply.CommentID,
			"replyId":   reply.ID,
			"likes":     reply.Likes,
			"isLiked":   reply.IsLiked,
		},
		Scope: hub.Room(state.ReelRoom(req.ReelID)),
	})
	a.writeJSON(w, http.StatusOK, reply)
}

func (a *API) toggleReelLike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if !a.readJSON(w, r, &req) {
		return
	}
	st, err := a.store.ToggleReelLike(r.Context(), r.PathValue("reelId"))
	if err != nil {
		a.writeStoreError(w, err)
		return
	}

	// reel like state is shown on every feed, so this one goes global
	a.hub.Publish(hub.BroadcastRequest{
		Event: hub.EventReelLikeUpdate,
		Payload: map[string]any{
			"reelId":     st.ReelID,
			"isLiked":    st.IsLiked,
			"totalLikes": st.TotalLikes,
			"userId":     req.UserID,
		},
		Scope: hub.Global(),
	})
	a.writeJSON(w, http.StatusOK, st)
}
