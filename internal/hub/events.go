package hub

// Outbound wire event names. Shared by the socket event handlers and the HTTP
// completion layer, which both funnel through Hub.Publish.
const (
	EventOnlineUsers            = "online_users"
	EventUserDisconnected       = "user_disconnected"
	EventUserTyping             = "user_typing"
	EventReceiveMessage         = "receive_message"
	EventNewMessageNotification = "new_message_notification"
	EventMessageDeleted         = "message_deleted"
	EventReelCommentReceived    = "reel_comment_received"
	EventReelLikeReceived       = "reel_like_received"
	EventNewComment             = "newComment"
	EventNewReply               = "newReply"
	EventCommentLikeUpdate      = "commentLikeUpdate"
	EventReplyLikeUpdate        = "replyLikeUpdate"
	EventReelLikeUpdate         = "reelLikeUpdate"
	EventNewNotification        = "newNotification"
)
