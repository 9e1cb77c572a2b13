package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"viktor/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard, SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestAtomic_CommitsOnSuccess(t *testing.T) {
	db, mock := setupMockDB(t)
	s := New(db, WithRetryPolicy(fastPolicy(3)))

	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := s.Atomic(context.Background(), "noop", func(_ *gorm.DB) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_RetriesContentionThenSucceeds(t *testing.T) {
	db, mock := setupMockDB(t)
	s := New(db, WithRetryPolicy(fastPolicy(3)))

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := s.Atomic(context.Background(), "toggle_like", func(_ *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_GivesUpAsStoreUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	s := New(db, WithRetryPolicy(fastPolicy(2)))

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	calls := 0
	err := s.Atomic(context.Background(), "toggle_like", func(_ *gorm.DB) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable))
	assert.Equal(t, 3, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_DomainErrorsAreNotRetried(t *testing.T) {
	db, mock := setupMockDB(t)
	s := New(db, WithRetryPolicy(fastPolicy(5)))

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := s.Atomic(context.Background(), "record_comment", func(_ *gorm.DB) error {
		calls++
		return models.NewNotFoundError("post", 7)
	})
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_UniqueViolationRetriedOnlyWhenRequested(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}

	t.Run("without option", func(t *testing.T) {
		db, mock := setupMockDB(t)
		s := New(db, WithRetryPolicy(fastPolicy(5)))
		mock.ExpectBegin()
		mock.ExpectRollback()

		calls := 0
		err := s.Atomic(context.Background(), "register", func(_ *gorm.DB) error {
			calls++
			return dup
		})
		assert.True(t, errors.Is(err, models.ErrConstraint))
		assert.Equal(t, 1, calls)
	})

	t.Run("with option", func(t *testing.T) {
		db, mock := setupMockDB(t)
		s := New(db, WithRetryPolicy(fastPolicy(5)))
		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		err := s.Atomic(context.Background(), "find_or_create_conversation", func(_ *gorm.DB) error {
			calls++
			if calls == 1 {
				return dup
			}
			return nil
		}, RetryOnConflict())
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAtomic_ContextCancelStopsRetrying(t *testing.T) {
	db, mock := setupMockDB(t)
	s := New(db, WithRetryPolicy(RetryPolicy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: time.Second}))

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	err := s.Atomic(ctx, "toggle_like", func(_ *gorm.DB) error {
		cancel()
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetryPolicy_BackoffBounds(t *testing.T) {
	p := RetryPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 80 * time.Millisecond}
	for attempt := 0; attempt < 10; attempt++ {
		want := p.BaseDelay << uint(attempt)
		if want > p.MaxDelay {
			want = p.MaxDelay
		}
		got := p.Backoff(attempt)
		assert.GreaterOrEqual(t, got, want/2)
		assert.LessOrEqual(t, got, want)
	}
	assert.Zero(t, RetryPolicy{}.Backoff(3))
}

func TestStore_NowIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	fixed := time.Date(2024, 5, 1, 15, 0, 0, 0, loc)
	s := New(nil, WithClock(func() time.Time { return fixed }))
	assert.Equal(t, time.UTC, s.Now().Location())
	assert.True(t, fixed.Equal(s.Now()))
}
