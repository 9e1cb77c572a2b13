package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"viktor/internal/events"
	"viktor/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatStub() *chatRepoStub {
	return &chatRepoStub{
		getConversationFn: func(_ context.Context, id uint) (*models.Conversation, error) {
			if id != 10 {
				return nil, models.NewNotFoundError("conversation", id)
			}
			return &models.Conversation{ID: 10, User1ID: 1, User2ID: 2}, nil
		},
		createMessageFn: func(_ context.Context, msg *models.Message) error {
			msg.ID = 100
			return nil
		},
		unreadTotalFn: func(context.Context, uint) (int64, error) { return 3, nil },
		markReadFn:    func(context.Context, uint, uint) (int64, error) { return 0, nil },
	}
}

func TestChatService_SendMessageValidation(t *testing.T) {
	svc := NewChatService(newChatStub(), nil, nil)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, 10, 1, "  ")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.SendMessage(ctx, 11, 1, "hi")
	assertCode(t, err, models.CodeNotFound)

	_, err = svc.SendMessage(ctx, 10, 3, "hi")
	assertCode(t, err, models.CodeValidation)

	msg, err := svc.SendMessage(ctx, 10, 2, "hi")
	require.NoError(t, err)
	assert.Equal(t, uint(100), msg.ID)
	assert.False(t, msg.IsRead)
}

func TestChatService_FindOrCreateReturnsID(t *testing.T) {
	repo := newChatStub()
	repo.findOrCreateFn = func(_ context.Context, a, b uint) (*models.Conversation, bool, error) {
		lower, higher, err := models.NormalizePair(a, b)
		if err != nil {
			return nil, false, err
		}
		return &models.Conversation{ID: 10, User1ID: lower, User2ID: higher}, true, nil
	}
	svc := NewChatService(repo, nil, nil)

	id, err := svc.FindOrCreateConversation(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(10), id)

	_, err = svc.FindOrCreateConversation(context.Background(), 2, 2)
	assertCode(t, err, models.CodeValidation)
}

func TestChatService_SendMessagePublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, events.ConversationChannel(10), events.UserChannel(1))
	t.Cleanup(func() { _ = sub.Close() })
	for i := 0; i < 2; i++ {
		_, err := sub.Receive(ctx)
		require.NoError(t, err)
	}

	svc := NewChatService(newChatStub(), nil, events.NewPublisher(rdb))
	_, err := svc.SendMessage(ctx, 10, 2, "hello")
	require.NoError(t, err)

	got := map[string]events.Event{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case m := <-sub.Channel():
			var e events.Event
			require.NoError(t, json.Unmarshal([]byte(m.Payload), &e))
			got[m.Channel] = e
		case <-timeout:
			t.Fatalf("received %d of 2 events", len(got))
		}
	}
	assert.Equal(t, events.KindMessageSent, got[events.ConversationChannel(10)].Kind)
	assert.Equal(t, events.KindUnreadChanged, got[events.UserChannel(1)].Kind)
	assert.EqualValues(t, 3, got[events.UserChannel(1)].Data.(map[string]any)["unread_total"])
}

func TestChatService_MarkReadPassesCount(t *testing.T) {
	repo := newChatStub()
	repo.markReadFn = func(_ context.Context, convID, readerID uint) (int64, error) {
		assert.Equal(t, uint(10), convID)
		assert.Equal(t, uint(2), readerID)
		return 4, nil
	}
	svc := NewChatService(repo, nil, nil)

	changed, err := svc.MarkRead(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), changed)
}

func TestChatService_MarkReadUnknownConversation(t *testing.T) {
	repo := newChatStub()
	repo.markReadFn = func(context.Context, uint, uint) (int64, error) {
		t.Fatal("MarkRead must not reach the store for an unknown conversation")
		return 0, nil
	}
	svc := NewChatService(repo, nil, nil)

	changed, err := svc.MarkRead(context.Background(), 11, 2)
	assertCode(t, err, models.CodeNotFound)
	assert.Zero(t, changed)
}
