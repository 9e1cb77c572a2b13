package repository

import (
	"context"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/store"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Record(ctx context.Context, comment *models.Comment) error
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

// commentRepository implements CommentRepository
type commentRepository struct {
	store   *store.Store
	metrics *observability.DatabaseMetrics
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(s *store.Store) CommentRepository {
	return &commentRepository{
		store:   s,
		metrics: observability.NewDatabaseMetrics("comments"),
	}
}

// Record inserts the comment and increments the post's commentsCount in one
// atomic unit. A missing post rolls back the insert.
func (r *commentRepository) Record(ctx context.Context, comment *models.Comment) error {
	defer r.metrics.TrackQuery("record")()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = models.NewTimestamp(r.store.Now())
	}

	return r.store.Atomic(ctx, "record_comment", func(tx *gorm.DB) error {
		if err := lockPost(tx, comment.PostID); err != nil {
			return err
		}

		comment.ID = 0
		if err := tx.Create(comment).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("commentsCount", gorm.Expr(`"commentsCount" + 1`))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("post", comment.PostID)
		}
		return nil
	})
}

func (r *commentRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	defer r.metrics.TrackQuery("count")()
	var count int64
	err := r.store.DB(ctx).Model(&models.Comment{}).Where(`"postId" = ?`, postID).Count(&count).Error
	return count, store.Classify(err)
}
