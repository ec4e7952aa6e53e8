package router

import (
	"time"

	"github.com/goccy/go-json"
)

// ClientMessage is the inbound wire frame.
type ClientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound event names (client -> hub).
const (
	eventUserConnected    = "user_connected"
	eventJoinConversation = "join_conversation"
	eventJoinReel         = "joinReel"
	eventLeaveReel        = "leaveReel"
	eventSendMessage      = "send_message"
	eventSendReply        = "send_reply"
	eventTyping           = "typing"
	eventStopTyping       = "stop_typing"
	eventDeleteMessage    = "delete_message"
	eventNewReelComment   = "new_reel_comment"
	eventNewReelLike      = "new_reel_like"
	eventNewComment       = "newComment"
	eventNewReply         = "newReply"
	eventCommentLike      = "commentLikeUpdate"
	eventReplyLike        = "replyLikeUpdate"
	eventReelLike         = "reelLikeUpdate"
)

type messagePayload struct {
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	ReceiverID     string          `json:"receiverId"`
	Content        string          `json:"content"`
	ReplyTo        json.RawMessage `json:"replyTo,omitempty"`
}

type receiveMessage struct {
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	ReceiverID     string          `json:"receiverId,omitempty"`
	Content        string          `json:"content"`
	ReplyTo        json.RawMessage `json:"replyTo,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

type messageNotification struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
}

type typingPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type userTyping struct {
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
}

type deleteMessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type messageDeleted struct {
	MessageID string `json:"messageId"`
}

type reelCommentPayload struct {
	ReelID  string          `json:"reelId"`
	Comment json.RawMessage `json:"comment"`
}

type reelLikePayload struct {
	ReelID string `json:"reelId"`
	UserID string `json:"userId"`
}

type reelReplyPayload struct {
	ReelID    string          `json:"reelId"`
	CommentID string          `json:"commentId"`
	Reply     json.RawMessage `json:"reply"`
}

type replyEcho struct {
	CommentID string          `json:"commentId"`
	Reply     json.RawMessage `json:"reply"`
}

type commentLikePayload struct {
	ReelID    string `json:"reelId"`
	CommentID string `json:"commentId"`
	Likes     int    `json:"likes"`
	IsLiked   bool   `json:"isLiked"`
}

type commentLikeEcho struct {
	CommentID string `json:"commentId"`
	Likes     int    `json:"likes"`
	IsLiked   bool   `json:"isLiked"`
}

type replyLikePayload struct {
	ReelID    string `json:"reelId"`
	CommentID string `json:"commentId"`
	ReplyID   string `json:"replyId"`
	Likes     int    `json:"likes"`
	IsLiked   bool   `json:"isLiked"`
}

type replyLikeEcho struct {
	CommentID string `json:"commentId"`
	ReplyID   string `json:"replyId"`
	Likes     int    `json:"likes"`
	IsLiked   bool   `json:"isLiked"`
}

type reelLikeUpdate struct {
	ReelID     string `json:"reelId"`
	IsLiked    bool   `json:"isLiked"`
	TotalLikes int    `json:"totalLikes"`
	UserID     string `json:"userId"`
}
