package service

import (
	"context"

	"viktor/internal/events"
	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/repository"
)

// PostService owns post lifecycle and the counter-maintaining mutations.
type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	events      *events.Publisher
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

// NewPostService returns a new PostService. isAdmin may be nil, in which
// case nobody is treated as an admin.
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	publisher *events.Publisher,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		events:      publisher,
		isAdmin:     isAdmin,
	}
}

func (s *PostService) CreatePost(ctx context.Context, authorID uint, title, body string) (post *models.Post, err error) {
	ctx = observability.WithUserID(ctx, authorID)
	span, ctx := observability.NewSpan(ctx, "post.create", observability.IDAttr("user.id", authorID))
	defer func() { finishSpan(ctx, span, "create_post", err) }()

	if authorID == 0 {
		return nil, models.NewValidationError("Author is required")
	}
	if title, err = requireText(title, "Title", maxTitleLen); err != nil {
		return nil, err
	}
	if body, err = requireText(body, "Body", maxBodyLen); err != nil {
		return nil, err
	}

	post = &models.Post{Title: title, Body: body, AuthorID: authorID}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost edits title and body. Only the author may edit.
func (s *PostService) UpdatePost(ctx context.Context, actorID, postID uint, title, body string) (post *models.Post, err error) {
	ctx = observability.WithUserID(ctx, actorID)
	span, ctx := observability.NewSpan(ctx, "post.update",
		observability.IDAttr("post.id", postID),
		observability.IDAttr("user.id", actorID),
	)
	defer func() { finishSpan(ctx, span, "update_post", err) }()

	if title, err = requireText(title, "Title", maxTitleLen); err != nil {
		return nil, err
	}
	if body, err = requireText(body, "Body", maxBodyLen); err != nil {
		return nil, err
	}

	existing, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actorID {
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}
	return s.postRepo.Update(ctx, postID, title, body)
}

// DeletePost removes a post along with its comments and likes. The author
// and admins may delete.
func (s *PostService) DeletePost(ctx context.Context, actorID, postID uint) (err error) {
	ctx = observability.WithUserID(ctx, actorID)
	span, ctx := observability.NewSpan(ctx, "post.delete",
		observability.IDAttr("post.id", postID),
		observability.IDAttr("user.id", actorID),
	)
	defer func() { finishSpan(ctx, span, "delete_post", err) }()

	existing, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if existing.AuthorID != actorID {
		admin := false
		if s.isAdmin != nil {
			if admin, err = s.isAdmin(ctx, actorID); err != nil {
				return err
			}
		}
		if !admin {
			return models.NewForbiddenError("Only the author or an admin can delete this post")
		}
	}
	return s.postRepo.Delete(ctx, postID)
}

// ToggleLike flips userID's like on postID and returns the resulting state
// with the committed like count.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID uint) (res *models.LikeResult, err error) {
	ctx = observability.WithUserID(ctx, userID)
	span, ctx := observability.NewSpan(ctx, "post.toggle_like",
		observability.IDAttr("post.id", postID),
		observability.IDAttr("user.id", userID),
	)
	defer func() { finishSpan(ctx, span, "toggle_like", err) }()

	res, err = s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	s.events.LikeChanged(ctx, events.LikeChanged{
		PostID:     postID,
		UserID:     userID,
		Liked:      res.Liked,
		LikesCount: res.LikesCount,
	})
	return res, nil
}

// RecordComment adds a comment and bumps the post's comment count in the
// same unit. An empty body is rejected before the store is touched.
func (s *PostService) RecordComment(ctx context.Context, postID, authorID uint, body string) (comment *models.Comment, err error) {
	ctx = observability.WithUserID(ctx, authorID)
	span, ctx := observability.NewSpan(ctx, "post.record_comment",
		observability.IDAttr("post.id", postID),
		observability.IDAttr("user.id", authorID),
	)
	defer func() { finishSpan(ctx, span, "record_comment", err) }()

	if body, err = requireText(body, "Comment", maxCommentLen); err != nil {
		return nil, err
	}
	if postID == 0 || authorID == 0 {
		return nil, models.NewValidationError("Post and author are required")
	}

	comment = &models.Comment{PostID: postID, AuthorID: authorID, Body: body}
	if err := s.commentRepo.Record(ctx, comment); err != nil {
		return nil, err
	}

	s.events.CommentAdded(ctx, events.CommentAdded{
		PostID:    postID,
		CommentID: comment.ID,
		AuthorID:  authorID,
	})
	return comment, nil
}
