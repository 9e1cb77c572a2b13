package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"viktor/internal/config"
	"viktor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBDriver:                 config.DriverSQLite,
		DBPath:                   filepath.Join(t.TempDir(), "viktor.db"),
		DBBusyTimeoutMS:          5000,
		DBMaxOpenConns:           1,
		DBMaxIdleConns:           1,
		DBConnMaxLifetimeMinutes: 30,
		DBSlowQueryMS:            200,
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("/var/lib/viktor.db", 2500)
	assert.Equal(t, "/var/lib/viktor.db?_foreign_keys=1&_busy_timeout=2500&_journal_mode=WAL&_txlock=immediate", dsn)
}

func TestPostgresDSN_DefaultsSSLMode(t *testing.T) {
	dsn := PostgresDSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "viktor"})
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "TimeZone=UTC")
}

func TestConnect_RejectsUnknownDriver(t *testing.T) {
	_, err := Connect(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestConfigurePool(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBMaxOpenConns = 3
	db, err := Connect(cfg)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 3, sqlDB.Stats().MaxOpenConnections)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureSchema(ctx, db))
	require.NoError(t, EnsureSchema(ctx, db))

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model), "%T table missing", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Like{}, "idx_likes_post_author"))
	assert.True(t, db.Migrator().HasIndex(&models.Conversation{}, "idx_conversations_pair"))
	assert.True(t, db.Migrator().HasIndex(&models.User{}, "idx_users_email"))
}

func TestEnsureSchema_EnforcesUniqueness(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, EnsureSchema(context.Background(), db))

	require.NoError(t, db.Create(&models.User{Username: "alice", Email: "alice@example.com", Password: "h"}).Error)
	assert.Error(t, db.Create(&models.User{Username: "alice", Email: "other@example.com", Password: "h"}).Error)
	assert.Error(t, db.Create(&models.User{Username: "alice2", Email: "alice@example.com", Password: "h"}).Error)

	bob := models.User{Username: "bob", Email: "bob@example.com", Password: "h"}
	require.NoError(t, db.Create(&bob).Error)
	post := models.Post{Title: "t", Body: "b", AuthorID: bob.ID, CreatedAt: models.NewTimestamp(time.Now())}
	require.NoError(t, db.Create(&post).Error)

	require.NoError(t, db.Create(&models.Like{PostID: post.ID, AuthorID: bob.ID}).Error)
	assert.Error(t, db.Create(&models.Like{PostID: post.ID, AuthorID: bob.ID}).Error)
}

func TestEnsureSchema_EnforcesForeignKeys(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, EnsureSchema(context.Background(), db))

	err := db.Create(&models.Comment{Body: "orphan", PostID: 999, AuthorID: 999, CreatedAt: models.NewTimestamp(time.Now())}).Error
	assert.Error(t, err)
}

func TestEnsureSchema_CascadesUserDelete(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, EnsureSchema(context.Background(), db))
	now := models.NewTimestamp(time.Now())

	alice := models.User{Username: "alice", Email: "alice@example.com", Password: "h"}
	bob := models.User{Username: "bob", Email: "bob@example.com", Password: "h"}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	post := models.Post{Title: "t", Body: "b", AuthorID: alice.ID, CreatedAt: now}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.Comment{Body: "hi", PostID: post.ID, AuthorID: bob.ID, CreatedAt: now}).Error)
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, AuthorID: bob.ID}).Error)

	conv := models.Conversation{User1ID: alice.ID, User2ID: bob.ID, CreatedAt: now}
	require.NoError(t, db.Create(&conv).Error)
	require.NoError(t, db.Create(&models.Message{ConversationID: conv.ID, SenderID: bob.ID, Body: "hey", SentAt: now}).Error)

	require.NoError(t, db.Delete(&models.User{}, alice.ID).Error)

	for _, model := range []interface{}{&models.Post{}, &models.Comment{}, &models.Like{}, &models.Conversation{}, &models.Message{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows survived the cascade", model)
	}
}
