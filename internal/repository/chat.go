package repository

import (
	"context"
	"errors"
	"log/slog"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	FindOrCreateConversation(ctx context.Context, a, b uint) (*models.Conversation, bool, error)
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, convID uint) ([]models.MessageView, error)
	MarkRead(ctx context.Context, convID, readerID uint) (int64, error)
	UnreadTotal(ctx context.Context, userID uint) (int64, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	store   *store.Store
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewChatRepository creates a new chat repository
func NewChatRepository(s *store.Store) ChatRepository {
	return &chatRepository{
		store:   s,
		metrics: observability.NewDatabaseMetrics("conversations"),
		log:     observability.NewRepoLogger("conversations"),
	}
}

func findConversation(tx *gorm.DB, lower, higher uint, conv *models.Conversation) (bool, error) {
	res := tx.Where(`"user1Id" = ? AND "user2Id" = ?`, lower, higher).Limit(1).Find(conv)
	return res.RowsAffected > 0, res.Error
}

// FindOrCreateConversation returns the conversation for the unordered pair
// (a, b), creating it on first use. The bool reports whether this call
// created it. A concurrent creator that loses the insert race re-reads the
// winner's row.
func (r *chatRepository) FindOrCreateConversation(ctx context.Context, a, b uint) (*models.Conversation, bool, error) {
	defer r.metrics.TrackQuery("find_or_create")()
	lower, higher, err := models.NormalizePair(a, b)
	if err != nil {
		return nil, false, err
	}

	var conv models.Conversation
	created := false
	err = r.store.Atomic(ctx, "find_or_create_conversation", func(tx *gorm.DB) error {
		conv = models.Conversation{}
		created = false

		found, err := findConversation(tx, lower, higher, &conv)
		if err != nil || found {
			return err
		}

		conv = models.Conversation{User1ID: lower, User2ID: higher, CreatedAt: models.NewTimestamp(r.store.Now())}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1Id"}, {Name: "user2Id"}},
			DoNothing: true,
		}).Create(&conv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			created = true
			return nil
		}

		r.log.LogRace(ctx, "find_or_create_conversation", slog.Uint64("user1_id", uint64(lower)), slog.Uint64("user2_id", uint64(higher)))
		conv = models.Conversation{}
		found, err = findConversation(tx, lower, higher, &conv)
		if err != nil {
			return err
		}
		if !found {
			return models.NewConstraintError("conversation insert conflicted but no row is visible", nil)
		}
		return nil
	}, store.RetryOnConflict())
	if err != nil {
		return nil, false, err
	}
	return &conv, created, nil
}

func (r *chatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	defer r.metrics.TrackQuery("get")()
	var conv models.Conversation
	if err := r.store.DB(ctx).Take(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("conversation", id)
		}
		return nil, store.Classify(err)
	}
	return &conv, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	defer r.metrics.TrackQuery("create_message")()
	if msg.SentAt.IsZero() {
		msg.SentAt = models.NewTimestamp(r.store.Now())
	}
	msg.IsRead = false
	return store.Classify(r.store.DB(ctx).Create(msg).Error)
}

// GetMessages returns the conversation's messages oldest first.
func (r *chatRepository) GetMessages(ctx context.Context, convID uint) ([]models.MessageView, error) {
	defer r.metrics.TrackQuery("list_messages")()
	var messages []models.MessageView
	err := r.store.DB(ctx).
		Table("messages m").
		Select(`m.id AS id, m."conversationId" AS conversation_id, m."senderId" AS sender_id, COALESCE(u.username, '') AS sender_username, m.message AS body, m."sentDate" AS sent_at, m."isRead" AS is_read`).
		Joins(`LEFT JOIN users u ON u.id = m."senderId"`).
		Where(`m."conversationId" = ?`, convID).
		Order(`m."sentDate" ASC, m.id ASC`).
		Scan(&messages).Error
	if err != nil {
		return nil, store.Classify(err)
	}
	return messages, nil
}

// MarkRead flips every unread message in the conversation that the reader
// did not send. It is a single statement, so it is atomic on its own.
func (r *chatRepository) MarkRead(ctx context.Context, convID, readerID uint) (int64, error) {
	defer r.metrics.TrackQuery("mark_read")()
	res := r.store.DB(ctx).Model(&models.Message{}).
		Where(`"conversationId" = ? AND "senderId" <> ? AND "isRead" = ?`, convID, readerID, false).
		UpdateColumn("isRead", true)
	if res.Error != nil {
		return 0, store.Classify(res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadTotal counts unread messages addressed to userID across all of the
// user's conversations.
func (r *chatRepository) UnreadTotal(ctx context.Context, userID uint) (int64, error) {
	defer r.metrics.TrackQuery("unread_total")()
	var total int64
	err := r.store.DB(ctx).Model(&models.Message{}).
		Joins(`JOIN conversations c ON c.id = messages."conversationId"`).
		Where(`messages."isRead" = ? AND messages."senderId" <> ? AND (c."user1Id" = ? OR c."user2Id" = ?)`, false, userID, userID, userID).
		Count(&total).Error
	if err != nil {
		return 0, store.Classify(err)
	}
	return total, nil
}
