package repository

import (
	"context"
	"testing"

	"viktor/internal/models"
	"viktor/internal/store"
	"viktor/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T, maxOpen int) (*store.Store, *gorm.DB) {
	return testutil.NewStore(t, maxOpen)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	return testutil.NewMockDB(t)
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	return testutil.CreateUser(t, db, username)
}

func createPost(t *testing.T, s *store.Store, authorID uint, title string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Body: gofakeit.Sentence(8), AuthorID: authorID}
	require.NoError(t, NewPostRepository(s).Create(context.Background(), post))
	return post
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	return testutil.CountRows(t, db, model, where, args...)
}
