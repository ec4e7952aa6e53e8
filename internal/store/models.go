package store

import "time"

// Message is one chat message inside a conversation. Deletion is a soft
// flag; the row stays so reply chains keep resolving.
type Message struct {
	ID             string `gorm:"primaryKey"`
	ConversationID string `gorm:"index:idx_messages_conversation"`
	SenderID       string
	ReceiverID     string
	Content        string
	ImageURL       string
	VideoURL       string
	ReplyToID      string
	IsDeleted      bool
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation"`
	UpdatedAt      time.Time
}

// Conversation is a two-party thread. Participants are stored in canonical
// order so the same pair always resolves to the same row.
type Conversation struct {
	ID           string `gorm:"primaryKey"`
	ParticipantA string `gorm:"index:idx_conversations_pair"`
	ParticipantB string `gorm:"index:idx_conversations_pair"`
	LastUpdated  time.Time
	CreatedAt    time.Time
}

// ReelComment carries the scalar like state of the source model: a single
// boolean plus a counter. There is no per-user liker set; "liked by A" and
// "liked by B" are indistinguishable on purpose.
type ReelComment struct {
	ID        string `gorm:"primaryKey"`
	ReelID    string `gorm:"index"`
	AuthorID  string
	Content   string
	Likes     int
	IsLiked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ReelReply struct {
	ID        string `gorm:"primaryKey"`
	CommentID string `gorm:"index"`
	AuthorID  string
	Content   string
	Likes     int
	IsLiked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReelLikeState is the per-reel scalar toggle row, created on first like.
type ReelLikeState struct {
	ReelID     string `gorm:"primaryKey"`
	TotalLikes int
	IsLiked    bool
	UpdatedAt  time.Time
}

type Notification struct {
	ID          string `gorm:"primaryKey"`
	RecipientID string `gorm:"index"`
	SenderID    string
	Kind        string
	PostID      string
	Content     string
	Read        bool
	CreatedAt   time.Time
}
