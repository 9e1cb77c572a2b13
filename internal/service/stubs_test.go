package service

import (
	"context"
	"errors"
	"testing"

	"viktor/internal/models"
	"viktor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub overrides the PostRepository methods a test needs; calling
// any other method panics on the nil embedded interface.
type postRepoStub struct {
	repository.PostRepository
	createFn     func(context.Context, *models.Post) error
	getByIDFn    func(context.Context, uint) (*models.Post, error)
	updateFn     func(context.Context, uint, string, string) (*models.Post, error)
	deleteFn     func(context.Context, uint) error
	toggleLikeFn func(context.Context, uint, uint) (*models.LikeResult, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Update(ctx context.Context, id uint, title, body string) (*models.Post, error) {
	return s.updateFn(ctx, id, title, body)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeResult, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}

type commentRepoStub struct {
	repository.CommentRepository
	recordFn func(context.Context, *models.Comment) error
}

func (s *commentRepoStub) Record(ctx context.Context, c *models.Comment) error {
	return s.recordFn(ctx, c)
}

type chatRepoStub struct {
	repository.ChatRepository
	findOrCreateFn    func(context.Context, uint, uint) (*models.Conversation, bool, error)
	getConversationFn func(context.Context, uint) (*models.Conversation, error)
	createMessageFn   func(context.Context, *models.Message) error
	markReadFn        func(context.Context, uint, uint) (int64, error)
	unreadTotalFn     func(context.Context, uint) (int64, error)
}

func (s *chatRepoStub) FindOrCreateConversation(ctx context.Context, a, b uint) (*models.Conversation, bool, error) {
	return s.findOrCreateFn(ctx, a, b)
}
func (s *chatRepoStub) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.getConversationFn(ctx, id)
}
func (s *chatRepoStub) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.createMessageFn(ctx, msg)
}
func (s *chatRepoStub) MarkRead(ctx context.Context, convID, readerID uint) (int64, error) {
	return s.markReadFn(ctx, convID, readerID)
}
func (s *chatRepoStub) UnreadTotal(ctx context.Context, userID uint) (int64, error) {
	return s.unreadTotalFn(ctx, userID)
}

type userRepoStub struct {
	repository.UserRepository
	getByIDFn        func(context.Context, uint) (*models.User, error)
	usernamesByIDsFn func(context.Context, []uint) (map[uint]string, error)
	createFn         func(context.Context, *models.User) error
	deleteFn         func(context.Context, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) UsernamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	return s.usernamesByIDsFn(ctx, ids)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

type aggregateRepoStub struct {
	repository.AggregateRepository
	conversationsFn func(context.Context, uint) ([]*models.Conversation, error)
	lastMessagesFn  func(context.Context, []uint) (map[uint]*models.Message, error)
	unreadCountsFn  func(context.Context, uint, []uint) (map[uint]int64, error)
}

func (s *aggregateRepoStub) ConversationsForUser(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	return s.conversationsFn(ctx, userID)
}
func (s *aggregateRepoStub) LastMessages(ctx context.Context, ids []uint) (map[uint]*models.Message, error) {
	return s.lastMessagesFn(ctx, ids)
}
func (s *aggregateRepoStub) UnreadCounts(ctx context.Context, userID uint, ids []uint) (map[uint]int64, error) {
	return s.unreadCountsFn(ctx, userID, ids)
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
