package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"viktor/internal/models"
	"viktor/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	var stored *models.User
	svc := NewUserService(&userRepoStub{createFn: func(_ context.Context, u *models.User) error {
		u.ID = 4
		stored = u
		return nil
	}})
	ctx := context.Background()

	tests := []struct {
		name, username, email, hash string
	}{
		{"blank username", " ", "a@b.c", "h"},
		{"bad email", "alice", "alice", "h"},
		{"no hash", "alice", "a@b.c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.hash)
			assertCode(t, err, models.CodeValidation)
		})
	}

	user, err := svc.Register(ctx, " alice ", "alice@example.com", "$2a$10$hash")
	require.NoError(t, err)
	assert.Equal(t, uint(4), user.ID)
	assert.Equal(t, "alice", stored.Username)
}

func TestUserService_DeleteUserRequiresAdmin(t *testing.T) {
	deleted := []uint{}
	svc := NewUserService(&userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			if id == 1 {
				return &models.User{ID: 1, IsAdmin: true}, nil
			}
			if id == 2 {
				return &models.User{ID: 2}, nil
			}
			return nil, models.NewNotFoundError("user", id)
		},
		deleteFn: func(_ context.Context, id uint) error {
			deleted = append(deleted, id)
			return nil
		},
	})
	ctx := context.Background()

	assertCode(t, svc.DeleteUser(ctx, 2, 3), models.CodeForbidden)
	assertCode(t, svc.DeleteUser(ctx, 99, 3), models.CodeForbidden)
	require.NoError(t, svc.DeleteUser(ctx, 1, 3))
	assert.Equal(t, []uint{3}, deleted)
}

func TestUserService_DeleteUserLogsCorrelationAndActor(t *testing.T) {
	var buf bytes.Buffer
	prev := observability.GlobalLogger
	observability.GlobalLogger = observability.NewLogger(&buf, "info", "json")
	t.Cleanup(func() { observability.GlobalLogger = prev })

	svc := NewUserService(&userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsAdmin: true}, nil
		},
		deleteFn: func(context.Context, uint) error { return nil },
	})
	ctx := observability.WithCorrelationID(context.Background(), "req-42")
	require.NoError(t, svc.DeleteUser(ctx, 1, 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "user deleted by admin", line["msg"])
	assert.Equal(t, "req-42", line["correlation_id"])
	assert.EqualValues(t, 1, line["user_id"])
	assert.EqualValues(t, 3, line["deleted_user_id"])
}
