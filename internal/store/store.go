package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrForbidden = errors.New("store: operation not allowed")
)

// Store is the GORM-backed persistence layer the HTTP completion path writes
// to before requesting a broadcast. The hub itself never touches it.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (or creates) the sqlite database at dsn and migrates the schema.
func Open(log *slog.Logger, dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(
		&Message{},
		&Conversation{},
		&ReelComment{},
		&ReelReply{},
		&ReelLikeState{},
		&Notification{},
	); err != nil {
		return nil, fmt.Errorf("migrate store schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: log.With(slog.String("component", "store")),
	}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Messages ---

func (s *Store) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.ConversationID == "" || msg.SenderID == "" {
		return fmt.Errorf("%w: message needs conversationId and senderId", ErrForbidden)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now().UTC()
	msg.UpdatedAt = msg.CreatedAt
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	s.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", msg.ConversationID).
		Update("last_updated", msg.CreatedAt)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg Message
	err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SoftDeleteMessage marks a message deleted. Only the sender may delete.
func (s *Store) SoftDeleteMessage(ctx context.Context, messageID, userID string) (*Message, error) {
	msg, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, ErrForbidden
	}
	msg.IsDeleted = true
	msg.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Save(msg).Error; err != nil {
		return nil, fmt.Errorf("soft delete message: %w", err)
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetOrCreateConversation resolves the thread between two users, creating it
// on first contact. Participant order is canonicalized so (a,b) and (b,a)
// hit the same row.
func (s *Store) GetOrCreateConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("%w: conversation needs two participants", ErrForbidden)
	}
	if userB < userA {
		userA, userB = userB, userA
	}

	var conv Conversation
	err := s.db.WithContext(ctx).
		Where("participant_a = ? AND participant_b = ?", userA, userB).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = Conversation{
		ID:           uuid.NewString(),
		ParticipantA: userA,
		ParticipantB: userB,
		LastUpdated:  time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conv, nil
}

// --- Reels ---

func (s *Store) AddReelComment(ctx context.Context, c *ReelComment) error {
	if c.ReelID == "" {
		return fmt.Errorf("%w: comment needs a reelId", ErrForbidden)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Likes = 0
	c.IsLiked = false
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create reel comment: %w", err)
	}
	return nil
}

func (s *Store) AddReelReply(ctx context.Context, r *ReelReply) error {
	if r.CommentID == "" {
		return fmt.Errorf("%w: reply needs a commentId", ErrForbidden)
	}
	var parent ReelComment
	err := s.db.WithContext(ctx).First(&parent, "id = ?", r.CommentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Likes = 0
	r.IsLiked = false
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create reel reply: %w", err)
	}
	return nil
}

// ToggleCommentLike flips the comment's boolean and moves the counter by
// exactly one, in one transaction. The source model tracks no liker set;
// this scalar semantic is deliberate.
func (s *Store) ToggleCommentLike(ctx context.Context, commentID string) (*ReelComment, error) {
	var c ReelComment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		c.IsLiked = !c.IsLiked
		if c.IsLiked {
			c.Likes++
		} else {
			c.Likes--
		}
		c.UpdatedAt = time.Now().UTC()
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ToggleReplyLike(ctx context.Context, replyID string) (*ReelReply, error) {
	var r ReelReply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&r, "id = ?", replyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		r.IsLiked = !r.IsLiked
		if r.IsLiked {
			r.Likes++
		} else {
			r.Likes--
		}
		r.UpdatedAt = time.Now().UTC()
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ToggleReelLike flips the reel's like state, creating the row on first use.
func (s *Store) ToggleReelLike(ctx context.Context, reelID string) (*ReelLikeState, error) {
	if reelID == "" {
		return nil, fmt.Errorf("%w: toggle needs a reelId", ErrForbidden)
	}
	var st ReelLikeState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&st, "reel_id = ?", reelID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			st = ReelLikeState{ReelID: reelID, TotalLikes: 1, IsLiked: true, UpdatedAt: time.Now().UTC()}
			return tx.Create(&st).Error
		}
		if err != nil {
			return err
		}
		st.IsLiked = !st.IsLiked
		if st.IsLiked {
			st.TotalLikes++
		} else {
			st.TotalLikes--
		}
		st.UpdatedAt = time.Now().UTC()
		return tx.Save(&st).Error
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// --- Notifications ---

func (s *Store) CreateNotification(ctx context.Context, n *Notification) error {
	if n.RecipientID == "" {
		return fmt.Errorf("%w: notification needs a recipient", ErrForbidden)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string) ([]Notification, error) {
	var ns []Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&ns).Error
	if err != nil {
		return nil, err
	}
	return ns, nil
}
