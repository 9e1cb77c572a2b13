package repository

import (
	"context"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/store"

	"gorm.io/gorm"
)

// AggregateRepository serves the read side: one parent query per view plus
// one batched query per child relation, keyed by parent id.
type AggregateRepository interface {
	ListPosts(ctx context.Context) ([]*models.PostDetails, error)
	GetPostDetails(ctx context.Context, id uint) (*models.PostDetails, error)
	SearchPosts(ctx context.Context, query string) ([]*models.PostSummary, error)
	PostsByAuthor(ctx context.Context, authorID uint) ([]*models.Post, error)
	CommentsByPostIDs(ctx context.Context, postIDs []uint, newestFirst bool) (map[uint][]models.CommentView, error)
	LikersByPostIDs(ctx context.Context, postIDs []uint) (map[uint][]string, error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)
	ConversationsForUser(ctx context.Context, userID uint) ([]*models.Conversation, error)
	LastMessages(ctx context.Context, convIDs []uint) (map[uint]*models.Message, error)
	UnreadCounts(ctx context.Context, userID uint, convIDs []uint) (map[uint]int64, error)
}

type aggregateRepository struct {
	store   *store.Store
	metrics *observability.DatabaseMetrics
}

// NewAggregateRepository creates a new aggregate repository
func NewAggregateRepository(s *store.Store) AggregateRepository {
	return &aggregateRepository{
		store:   s,
		metrics: observability.NewDatabaseMetrics("aggregates"),
	}
}

const postColumns = `p.id AS id, p.title AS title, p.body AS body, p."createdDate" AS created_at, ` +
	`p."authorId" AS author_id, COALESCE(u.username, '') AS author, ` +
	`p."likesCount" AS likes_count, p."commentsCount" AS comments_count`

func (r *aggregateRepository) posts(ctx context.Context) *gorm.DB {
	return r.store.DB(ctx).
		Table("posts p").
		Select(postColumns).
		Joins(`LEFT JOIN users u ON u.id = p."authorId"`)
}

// ListPosts returns every post newest first, ties broken by id.
func (r *aggregateRepository) ListPosts(ctx context.Context) ([]*models.PostDetails, error) {
	defer r.metrics.TrackQuery("list_posts")()
	var posts []*models.PostDetails
	if err := r.posts(ctx).Order(`p."createdDate" DESC, p.id DESC`).Scan(&posts).Error; err != nil {
		return nil, store.Classify(err)
	}
	return posts, nil
}

func (r *aggregateRepository) GetPostDetails(ctx context.Context, id uint) (*models.PostDetails, error) {
	defer r.metrics.TrackQuery("get_post")()
	var posts []*models.PostDetails
	if err := r.posts(ctx).Where("p.id = ?", id).Limit(1).Scan(&posts).Error; err != nil {
		return nil, store.Classify(err)
	}
	if len(posts) == 0 {
		return nil, models.NewNotFoundError("post", id)
	}
	return posts[0], nil
}

// SearchPosts matches query against title and body, newest first.
func (r *aggregateRepository) SearchPosts(ctx context.Context, query string) ([]*models.PostSummary, error) {
	defer r.metrics.TrackQuery("search_posts")()
	pattern := likePattern(query)
	var posts []*models.PostSummary
	err := r.posts(ctx).
		Where(`LOWER(p.title) LIKE ? ESCAPE '\' OR LOWER(p.body) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order(`p."createdDate" DESC, p.id DESC`).
		Scan(&posts).Error
	if err != nil {
		return nil, store.Classify(err)
	}
	return posts, nil
}

func (r *aggregateRepository) PostsByAuthor(ctx context.Context, authorID uint) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("posts_by_author")()
	var posts []*models.Post
	err := r.store.DB(ctx).
		Where(`"authorId" = ?`, authorID).
		Order(`"createdDate" DESC, id DESC`).
		Find(&posts).Error
	if err != nil {
		return nil, store.Classify(err)
	}
	return posts, nil
}

// CommentsByPostIDs loads the comments of all posts at once, grouped by post.
func (r *aggregateRepository) CommentsByPostIDs(ctx context.Context, postIDs []uint, newestFirst bool) (map[uint][]models.CommentView, error) {
	defer r.metrics.TrackQuery("comments_by_posts")()
	order := `c."createdDate" ASC, c.id ASC`
	if newestFirst {
		order = `c."createdDate" DESC, c.id DESC`
	}

	byPost := make(map[uint][]models.CommentView, len(postIDs))
	for _, chunk := range chunkIDs(uniqueIDs(postIDs)) {
		var rows []models.CommentView
		err := r.store.DB(ctx).
			Table("comments c").
			Select(`c.id AS id, c.comment AS body, c."createdDate" AS created_at, c."postId" AS post_id, c."authorId" AS author_id, COALESCE(u.username, '') AS author`).
			Joins(`LEFT JOIN users u ON u.id = c."authorId"`).
			Where(`c."postId" IN ?`, chunk).
			Order(order).
			Scan(&rows).Error
		if err != nil {
			return nil, store.Classify(err)
		}
		for _, row := range rows {
			byPost[row.PostID] = append(byPost[row.PostID], row)
		}
	}
	return byPost, nil
}

type likerRow struct {
	PostID   uint
	Username string
}

// LikersByPostIDs returns liker usernames per post, alphabetically.
func (r *aggregateRepository) LikersByPostIDs(ctx context.Context, postIDs []uint) (map[uint][]string, error) {
	defer r.metrics.TrackQuery("likers_by_posts")()
	byPost := make(map[uint][]string, len(postIDs))
	for _, chunk := range chunkIDs(uniqueIDs(postIDs)) {
		var rows []likerRow
		err := r.store.DB(ctx).
			Table("likes l").
			Select(`l."postId" AS post_id, u.username AS username`).
			Joins(`JOIN users u ON u.id = l."authorId"`).
			Where(`l."postId" IN ?`, chunk).
			Order("LOWER(u.username) ASC, u.username ASC").
			Scan(&rows).Error
		if err != nil {
			return nil, store.Classify(err)
		}
		for _, row := range rows {
			byPost[row.PostID] = append(byPost[row.PostID], row.Username)
		}
	}
	return byPost, nil
}

// LikedPostIDs reports which of postIDs userID has liked.
func (r *aggregateRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if userID == 0 {
		return liked, nil
	}
	defer r.metrics.TrackQuery("liked_post_ids")()
	for _, chunk := range chunkIDs(uniqueIDs(postIDs)) {
		var ids []uint
		err := r.store.DB(ctx).
			Model(&models.Like{}).
			Where(`"authorId" = ? AND "postId" IN ?`, userID, chunk).
			Pluck("postId", &ids).Error
		if err != nil {
			return nil, store.Classify(err)
		}
		for _, id := range ids {
			liked[id] = true
		}
	}
	return liked, nil
}

func (r *aggregateRepository) ConversationsForUser(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	defer r.metrics.TrackQuery("conversations_for_user")()
	var convs []*models.Conversation
	err := r.store.DB(ctx).
		Where(`"user1Id" = ? OR "user2Id" = ?`, userID, userID).
		Order(`"createdDate" DESC, id DESC`).
		Find(&convs).Error
	if err != nil {
		return nil, store.Classify(err)
	}
	return convs, nil
}

// LastMessages returns the latest message of each conversation, by sentDate
// then id.
func (r *aggregateRepository) LastMessages(ctx context.Context, convIDs []uint) (map[uint]*models.Message, error) {
	defer r.metrics.TrackQuery("last_messages")()
	last := make(map[uint]*models.Message, len(convIDs))
	for _, chunk := range chunkIDs(uniqueIDs(convIDs)) {
		var rows []*models.Message
		err := r.store.DB(ctx).
			Table("messages m").
			Select("m.*").
			Where(`m."conversationId" IN ?`, chunk).
			Where(`NOT EXISTS (
				SELECT 1 FROM messages later
				WHERE later."conversationId" = m."conversationId"
				AND (later."sentDate" > m."sentDate" OR (later."sentDate" = m."sentDate" AND later.id > m.id))
			)`).
			Find(&rows).Error
		if err != nil {
			return nil, store.Classify(err)
		}
		for _, msg := range rows {
			last[msg.ConversationID] = msg
		}
	}
	return last, nil
}

type unreadRow struct {
	ConversationID uint
	Unread         int64
}

// UnreadCounts returns, per conversation, the messages userID has not read.
func (r *aggregateRepository) UnreadCounts(ctx context.Context, userID uint, convIDs []uint) (map[uint]int64, error) {
	defer r.metrics.TrackQuery("unread_counts")()
	counts := make(map[uint]int64, len(convIDs))
	for _, chunk := range chunkIDs(uniqueIDs(convIDs)) {
		var rows []unreadRow
		err := r.store.DB(ctx).
			Model(&models.Message{}).
			Select(`"conversationId" AS conversation_id, COUNT(*) AS unread`).
			Where(`"conversationId" IN ? AND "senderId" <> ? AND "isRead" = ?`, chunk, userID, false).
			Group("conversationId").
			Scan(&rows).Error
		if err != nil {
			return nil, store.Classify(err)
		}
		for _, row := range rows {
			counts[row.ConversationID] = row.Unread
		}
	}
	return counts, nil
}
