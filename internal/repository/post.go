package repository

import (
	"context"
	"errors"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, id uint, title, body string) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeResult, error)
	CounterDrift(ctx context.Context) ([]models.CounterDrift, error)
}

// postRepository implements PostRepository
type postRepository struct {
	store   *store.Store
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(s *store.Store) PostRepository {
	return &postRepository{
		store:   s,
		metrics: observability.NewDatabaseMetrics("posts"),
		log:     observability.NewRepoLogger("posts"),
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("create")()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = models.NewTimestamp(r.store.Now())
	}
	post.CommentsCount = 0
	post.LikesCount = 0
	return store.Classify(r.store.DB(ctx).Create(post).Error)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer r.metrics.TrackQuery("get")()
	var post models.Post
	if err := r.store.DB(ctx).Take(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post", id)
		}
		return nil, store.Classify(err)
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, id uint, title, body string) (*models.Post, error) {
	defer r.metrics.TrackQuery("update")()
	res := r.store.DB(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "body": body})
	if res.Error != nil {
		return nil, store.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("post", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the post; its comments and likes go with it through the
// ON DELETE CASCADE foreign keys.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()
	res := r.store.DB(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return store.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("post", id)
	}
	return nil
}

// ToggleLike flips the user's like on the post and adjusts likesCount in the
// same unit. The counter only moves when a row was actually inserted or
// deleted, so a lost insert race leaves both untouched.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeResult, error) {
	defer r.metrics.TrackQuery("toggle_like")()
	if postID == 0 || userID == 0 {
		return nil, models.NewValidationError("Post and user are required")
	}

	result := &models.LikeResult{PostID: postID}
	err := r.store.Atomic(ctx, "toggle_like", func(tx *gorm.DB) error {
		if err := lockPost(tx, postID); err != nil {
			return err
		}

		var existing models.Like
		found := tx.Where(`"postId" = ? AND "authorId" = ?`, postID, userID).Limit(1).Find(&existing)
		if found.Error != nil {
			return found.Error
		}

		delta := 0
		if found.RowsAffected > 0 {
			del := tx.Where("id = ?", existing.ID).Delete(&models.Like{})
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected > 0 {
				delta = -1
			}
			result.Liked = false
		} else {
			like := models.Like{PostID: postID, AuthorID: userID}
			ins := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "postId"}, {Name: "authorId"}},
				DoNothing: true,
			}).Create(&like)
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected > 0 {
				delta = 1
			} else {
				r.log.LogRace(ctx, "toggle_like")
			}
			result.Liked = true
		}

		if delta != 0 {
			upd := tx.Model(&models.Post{}).
				Where("id = ?", postID).
				UpdateColumn("likesCount", gorm.Expr(`CASE WHEN "likesCount" + ? < 0 THEN 0 ELSE "likesCount" + ? END`, delta, delta))
			if upd.Error != nil {
				return upd.Error
			}
		}

		var post models.Post
		if err := tx.Select("id", "likesCount").Take(&post, postID).Error; err != nil {
			return err
		}
		result.LikesCount = post.LikesCount
		return nil
	}, store.RetryOnConflict())
	if err != nil {
		return nil, err
	}

	observability.RecordLikeToggle(result.Liked)
	return result, nil
}

// CounterDrift lists posts whose counters disagree with their row counts.
func (r *postRepository) CounterDrift(ctx context.Context) ([]models.CounterDrift, error) {
	defer r.metrics.TrackQuery("counter_drift")()
	var drift []models.CounterDrift
	err := r.store.DB(ctx).Raw(`
		SELECT d.post_id, d.likes_count, d.like_rows, d.comments_count, d.comment_rows FROM (
			SELECT p.id AS post_id,
				p."likesCount" AS likes_count,
				(SELECT COUNT(*) FROM likes l WHERE l."postId" = p.id) AS like_rows,
				p."commentsCount" AS comments_count,
				(SELECT COUNT(*) FROM comments c WHERE c."postId" = p.id) AS comment_rows
			FROM posts p
		) d
		WHERE d.likes_count <> d.like_rows OR d.comments_count <> d.comment_rows
		ORDER BY d.post_id`).Scan(&drift).Error
	if err != nil {
		return nil, store.Classify(err)
	}
	return drift, nil
}
