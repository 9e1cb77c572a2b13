package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"viktor/internal/models"
	"viktor/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepository(t *testing.T) {
	s, db := setupTestStore(t, 1)
	repo := NewChatRepository(s)
	ctx := context.Background()

	a := createUser(t, db, "anna")
	b := createUser(t, db, "boris")

	t.Run("FindOrCreateSymmetric", func(t *testing.T) {
		conv, created, err := repo.FindOrCreateConversation(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, a.ID, conv.User1ID)
		assert.Equal(t, b.ID, conv.User2ID)

		again, created, err := repo.FindOrCreateConversation(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, conv.ID, again.ID)
		assert.Equal(t, int64(1), countRows(t, db, &models.Conversation{}, "1 = 1"))
	})

	t.Run("FindOrCreateRejectsSelf", func(t *testing.T) {
		_, _, err := repo.FindOrCreateConversation(ctx, a.ID, a.ID)
		assert.True(t, errors.Is(err, models.ErrValidation))
	})

	t.Run("FindOrCreateUnknownUser", func(t *testing.T) {
		_, _, err := repo.FindOrCreateConversation(ctx, a.ID, 9999)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("MessagesAndReadState", func(t *testing.T) {
		conv, _, err := repo.FindOrCreateConversation(ctx, a.ID, b.ID)
		require.NoError(t, err)

		for _, m := range []struct {
			sender uint
			body   string
		}{{a.ID, "hi"}, {b.ID, "hey"}, {a.ID, "how are you"}} {
			msg := &models.Message{ConversationID: conv.ID, SenderID: m.sender, Body: m.body}
			require.NoError(t, repo.CreateMessage(ctx, msg))
			assert.False(t, msg.IsRead)
		}

		messages, err := repo.GetMessages(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, "hi", messages[0].Body)
		assert.Equal(t, "anna", messages[0].SenderUsername)
		assert.Equal(t, "how are you", messages[2].Body)

		unread, err := repo.UnreadTotal(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), unread)

		changed, err := repo.MarkRead(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), changed)

		changed, err = repo.MarkRead(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.Zero(t, changed)

		unread, err = repo.UnreadTotal(ctx, b.ID)
		require.NoError(t, err)
		assert.Zero(t, unread)

		unread, err = repo.UnreadTotal(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unread)
	})

	t.Run("GetConversationNotFound", func(t *testing.T) {
		_, err := repo.GetConversation(ctx, 4040)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})
}

func TestChatRepository_ConcurrentFindOrCreate(t *testing.T) {
	s, db := setupTestStore(t, 4)
	repo := NewChatRepository(s)
	ctx := context.Background()
	a := createUser(t, db, "anna")
	b := createUser(t, db, "boris")

	const n = 12
	ids := make([]uint, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first, second := a.ID, b.ID
			if i%2 == 1 {
				first, second = second, first
			}
			conv, _, err := repo.FindOrCreateConversation(ctx, first, second)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, int64(1), countRows(t, db, &models.Conversation{}, "1 = 1"))
}

func TestChatRepository_FindOrCreateLostRaceRereads(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(store.New(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE "user1Id" = \$1 AND "user2Id" = \$2`).
		WithArgs(3, 8, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "conversations" .* ON CONFLICT \("user1Id","user2Id"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE "user1Id" = \$1 AND "user2Id" = \$2`).
		WithArgs(3, 8, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user1Id", "user2Id"}).AddRow(21, 3, 8))
	mock.ExpectCommit()

	conv, created, err := repo.FindOrCreateConversation(context.Background(), 8, 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint(21), conv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatRepository_MarkReadSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewChatRepository(store.New(db))

	mock.ExpectExec(`UPDATE "messages" SET "isRead"=\$1 WHERE "conversationId" = \$2 AND "senderId" <> \$3 AND "isRead" = \$4`).
		WithArgs(true, 3, 1, false).
		WillReturnResult(sqlmock.NewResult(0, 2))

	changed, err := repo.MarkRead(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
