package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/repository"
)

// UnknownUsername is shown in place of a user that no longer exists.
const UnknownUsername = "Unknown"

// QueryService assembles the read-side views. Each view is one parent query
// plus one batched query per child relation, joined in memory.
type QueryService struct {
	agg      repository.AggregateRepository
	userRepo repository.UserRepository
}

// NewQueryService returns a new QueryService.
func NewQueryService(agg repository.AggregateRepository, userRepo repository.UserRepository) *QueryService {
	return &QueryService{agg: agg, userRepo: userRepo}
}

// Feed lists every post newest first. Comments are newest first; viewerID 0
// is an anonymous reader.
func (s *QueryService) Feed(ctx context.Context, viewerID uint) (posts []*models.PostDetails, err error) {
	ctx = observability.WithUserID(ctx, viewerID)
	span, ctx := observability.NewSpan(ctx, "query.feed", observability.IDAttr("user.id", viewerID))
	defer func() { finishSpan(ctx, span, "feed", err) }()

	posts, err = s.agg.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.attachChildren(ctx, posts, viewerID, true); err != nil {
		return nil, err
	}
	return posts, nil
}

// PostView is one post in full, with comments oldest first.
func (s *QueryService) PostView(ctx context.Context, postID, viewerID uint) (post *models.PostDetails, err error) {
	ctx = observability.WithUserID(ctx, viewerID)
	span, ctx := observability.NewSpan(ctx, "query.post_view",
		observability.IDAttr("post.id", postID),
		observability.IDAttr("user.id", viewerID),
	)
	defer func() { finishSpan(ctx, span, "post_view", err) }()

	post, err = s.agg.GetPostDetails(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.attachChildren(ctx, []*models.PostDetails{post}, viewerID, false); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *QueryService) attachChildren(ctx context.Context, posts []*models.PostDetails, viewerID uint, newestFirst bool) error {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	comments, err := s.agg.CommentsByPostIDs(ctx, ids, newestFirst)
	if err != nil {
		return err
	}
	likers, err := s.agg.LikersByPostIDs(ctx, ids)
	if err != nil {
		return err
	}
	liked, err := s.agg.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}

	for _, p := range posts {
		p.Comments = comments[p.ID]
		if p.Comments == nil {
			p.Comments = []models.CommentView{}
		}
		p.LikedUsers = likers[p.ID]
		if p.LikedUsers == nil {
			p.LikedUsers = []string{}
		}
		p.HasLiked = liked[p.ID]
	}
	return nil
}

// Profile looks up username case-insensitively and lists their posts newest
// first.
func (s *QueryService) Profile(ctx context.Context, username string) (profile *models.Profile, err error) {
	span, ctx := observability.NewSpan(ctx, "query.profile")
	defer func() { finishSpan(ctx, span, "profile", err) }()

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	posts, err := s.agg.PostsByAuthor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &models.Profile{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Posts:    posts,
	}, nil
}

type inboxEntry struct {
	summary models.ConversationSummary
	convID  uint
	lastID  uint
}

// Inbox lists userID's conversations, most recent message first.
// Conversations without messages come last, newest first.
func (s *QueryService) Inbox(ctx context.Context, userID uint) (inbox []models.ConversationSummary, err error) {
	ctx = observability.WithUserID(ctx, userID)
	span, ctx := observability.NewSpan(ctx, "query.inbox", observability.IDAttr("user.id", userID))
	defer func() { finishSpan(ctx, span, "inbox", err) }()

	convs, err := s.agg.ConversationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	convIDs := make([]uint, len(convs))
	otherIDs := make([]uint, len(convs))
	for i, c := range convs {
		convIDs[i] = c.ID
		otherIDs[i] = c.Counterpart(userID)
	}

	names, err := s.userRepo.UsernamesByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	last, err := s.agg.LastMessages(ctx, convIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.agg.UnreadCounts(ctx, userID, convIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]inboxEntry, len(convs))
	for i, c := range convs {
		other := otherIDs[i]
		name, ok := names[other]
		if !ok {
			name = UnknownUsername
		}
		e := inboxEntry{
			convID: c.ID,
			summary: models.ConversationSummary{
				ConversationID: c.ID,
				OtherUserID:    other,
				OtherUsername:  name,
				UnreadCount:    unread[c.ID],
				CreatedAt:      c.CreatedAt,
			},
		}
		if msg, ok := last[c.ID]; ok {
			body := msg.Body
			sentAt := msg.SentAt
			e.summary.LastMessage = &body
			e.summary.LastMessageAt = &sentAt
			e.lastID = msg.ID
		}
		entries[i] = e
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		aAt, bAt := a.summary.LastMessageAt, b.summary.LastMessageAt
		switch {
		case aAt != nil && bAt != nil:
			if !aAt.Equal(bAt.Time) {
				return aAt.After(bAt.Time)
			}
			return a.lastID > b.lastID
		case aAt != nil:
			return true
		case bAt != nil:
			return false
		}
		return newerFirst(a.summary.CreatedAt.Time, b.summary.CreatedAt.Time, a.convID, b.convID)
	})

	inbox = make([]models.ConversationSummary, len(entries))
	for i, e := range entries {
		inbox[i] = e.summary
	}
	return inbox, nil
}

func newerFirst(a, b time.Time, aID, bID uint) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

// SearchPosts finds posts whose title or body contains query.
func (s *QueryService) SearchPosts(ctx context.Context, query string) (posts []*models.PostSummary, err error) {
	span, ctx := observability.NewSpan(ctx, "query.search_posts")
	defer func() { finishSpan(ctx, span, "search_posts", err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.agg.SearchPosts(ctx, query)
}

// SearchUsers finds users whose username contains query, alphabetically.
func (s *QueryService) SearchUsers(ctx context.Context, query string) (users []models.UserSummary, err error) {
	span, ctx := observability.NewSpan(ctx, "query.search_users")
	defer func() { finishSpan(ctx, span, "search_users", err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.userRepo.Search(ctx, query)
}

// Username resolves a user id for display, falling back to UnknownUsername.
func (s *QueryService) Username(ctx context.Context, userID uint) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return UnknownUsername, nil
		}
		return "", err
	}
	return user.Username, nil
}

// AdminOverview lists admins, regular users and every post.
func (s *QueryService) AdminOverview(ctx context.Context) (overview *models.AdminOverview, err error) {
	span, ctx := observability.NewSpan(ctx, "query.admin_overview")
	defer func() { finishSpan(ctx, span, "admin_overview", err) }()

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.agg.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	overview = &models.AdminOverview{
		Admins: []models.UserSummary{},
		Users:  []models.UserSummary{},
		Posts:  make([]*models.PostSummary, 0, len(posts)),
	}
	for _, u := range users {
		summary := models.UserSummary{ID: u.ID, Username: u.Username}
		if u.IsAdmin {
			overview.Admins = append(overview.Admins, summary)
		} else {
			overview.Users = append(overview.Users, summary)
		}
	}
	for _, p := range posts {
		overview.Posts = append(overview.Posts, &models.PostSummary{
			ID:            p.ID,
			Title:         p.Title,
			Body:          p.Body,
			CreatedAt:     p.CreatedAt,
			AuthorID:      p.AuthorID,
			Author:        p.Author,
			LikesCount:    p.LikesCount,
			CommentsCount: p.CommentsCount,
		})
	}
	return overview, nil
}
