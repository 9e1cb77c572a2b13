// Package testutil provides shared stores and fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"viktor/internal/config"
	"viktor/internal/database"
	"viktor/internal/models"
	"viktor/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Epoch is the first instant handed out by TickingClock.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// TickingClock returns a time source that advances one second per call, so
// rows written in sequence get strictly increasing timestamps.
func TickingClock() func() time.Time {
	var mu sync.Mutex
	now := Epoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// SQLiteConfig returns a config pointing at a fresh database file under the
// test's temp dir.
func SQLiteConfig(t *testing.T, maxOpen int) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                      "test",
		DBDriver:                 config.DriverSQLite,
		DBPath:                   filepath.Join(t.TempDir(), "viktor.db"),
		DBBusyTimeoutMS:          5000,
		DBMaxOpenConns:           maxOpen,
		DBMaxIdleConns:           maxOpen,
		DBConnMaxLifetimeMinutes: 30,
		DBSlowQueryMS:            500,
		TxMaxRetries:             8,
		TxRetryBaseMS:            5,
	}
}

// NewStore opens a migrated sqlite database and wraps it in a Store with a
// ticking clock. maxOpen above 1 lets tests exercise real lock contention.
func NewStore(t *testing.T, maxOpen int) (*store.Store, *gorm.DB) {
	t.Helper()
	db, err := database.Connect(SQLiteConfig(t, maxOpen))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.EnsureSchema(context.Background(), db))

	return store.New(db, store.WithClock(TickingClock())), db
}

// LegacySchema is the table layout written by the first release of the
// forum, which stores every date as ISO-8601 text.
var LegacySchema = []string{
	`CREATE TABLE users(id INTEGER PRIMARY KEY AUTOINCREMENT, username STRING NOT NULL UNIQUE, email STRING NOT NULL, password STRING NOT NULL, isAdmin INTEGER DEFAULT 0)`,
	`CREATE TABLE posts(id INTEGER PRIMARY KEY AUTOINCREMENT, createdDate TEXT, title STRING NOT NULL, body TEXT NOT NULL, authorId INTEGER NOT NULL, commentsCount INTEGER DEFAULT 0, likesCount INTEGER DEFAULT 0, FOREIGN KEY (authorId) REFERENCES users(id))`,
	`CREATE TABLE comments(id INTEGER PRIMARY KEY AUTOINCREMENT, comment TEXT NOT NULL, createdDate TEXT NOT NULL, postId INTEGER NOT NULL, authorId INTEGER NOT NULL, FOREIGN KEY (postId) REFERENCES posts(id) ON DELETE CASCADE, FOREIGN KEY (authorId) REFERENCES users(id))`,
	`CREATE TABLE likes(id INTEGER PRIMARY KEY AUTOINCREMENT, postId INTEGER NOT NULL, authorId INTEGER NOT NULL, UNIQUE (postId, authorId), FOREIGN KEY (postId) REFERENCES posts(id) ON DELETE CASCADE, FOREIGN KEY (authorId) REFERENCES users(id))`,
	`CREATE TABLE conversations(id INTEGER PRIMARY KEY AUTOINCREMENT, user1Id INTEGER NOT NULL, user2Id INTEGER NOT NULL, createdDate TEXT NOT NULL, UNIQUE(user1Id, user2Id), FOREIGN KEY(user1Id) REFERENCES users(id) ON DELETE CASCADE, FOREIGN KEY(user2Id) REFERENCES users(id) ON DELETE CASCADE)`,
	`CREATE TABLE messages(id INTEGER PRIMARY KEY AUTOINCREMENT, conversationId INTEGER NOT NULL, senderId INTEGER NOT NULL, message TEXT NOT NULL, sentDate TEXT NOT NULL, isRead INTEGER DEFAULT 0, FOREIGN KEY(conversationId) REFERENCES conversations(id) ON DELETE CASCADE, FOREIGN KEY(senderId) REFERENCES users(id) ON DELETE CASCADE)`,
}

// LegacyRows seeds a legacy store: users 1 (admin) and 2, post 1 by user 1
// with one comment, and conversation 1 between them holding one unread
// message from user 2 sent on the same day as Epoch, an hour earlier.
var LegacyRows = []string{
	`INSERT INTO users(username, email, password, isAdmin) VALUES ('ada', 'ada@example.com', 'hash', 1), ('ben', 'ben@example.com', 'hash', 0)`,
	`INSERT INTO posts(createdDate, title, body, authorId, commentsCount, likesCount) VALUES ('2024-02-10T08:30:00.000Z', 'Old times', 'Written before the rewrite', 1, 1, 0)`,
	`INSERT INTO comments(comment, createdDate, postId, authorId) VALUES ('Still here', '2024-02-10T09:00:00.000Z', 1, 2)`,
	`INSERT INTO conversations(user1Id, user2Id, createdDate) VALUES (1, 2, '2024-02-11T10:00:00.000Z')`,
	`INSERT INTO messages(conversationId, senderId, message, sentDate, isRead) VALUES (1, 2, 'hello from before', '2024-03-01T11:00:00.000Z', 0)`,
}

// NewLegacyStore opens a database laid out and filled by the first release,
// then runs EnsureSchema over it.
func NewLegacyStore(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()
	db, err := database.Connect(SQLiteConfig(t, 1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	for _, stmt := range append(append([]string{}, LegacySchema...), LegacyRows...) {
		require.NoError(t, db.Exec(stmt).Error)
	}
	require.NoError(t, database.EnsureSchema(context.Background(), db))

	return store.New(db, store.WithClock(TickingClock())), db
}

// NewMockDB returns a gorm handle on the postgres dialector backed by sqlmock.
func NewMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{SkipDefaultTransaction: true, TranslateError: true})
	require.NoError(t, err)
	return db, mock
}

// CreateUser inserts a user with a unique fake email.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    gofakeit.Username() + "." + username + "@example.com",
		Password: "x",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateAdmin inserts an admin user.
func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := CreateUser(t, db, username)
	require.NoError(t, db.Model(user).UpdateColumn("isAdmin", true).Error)
	user.IsAdmin = true
	return user
}

// CountRows counts rows of model matching where.
func CountRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}
