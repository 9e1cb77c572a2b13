package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"viktor/internal/observability"

	"gorm.io/gorm"
)

type indexSpec struct {
	name    string
	table   string
	columns string
	unique  bool
}

// schemaIndexes must exist on every store, including files created by older
// releases whose tables carry inline UNIQUE constraints instead.
var schemaIndexes = []indexSpec{
	{"idx_users_username", "users", `"username"`, true},
	{"idx_users_email", "users", `"email"`, true},
	{"idx_likes_post_author", "likes", `"postId", "authorId"`, true},
	{"idx_conversations_pair", "conversations", `"user1Id", "user2Id"`, true},
	{"idx_posts_created", "posts", `"createdDate"`, false},
	{"idx_posts_author", "posts", `"authorId"`, false},
	{"idx_comments_post", "comments", `"postId"`, false},
	{"idx_likes_author", "likes", `"authorId"`, false},
	{"idx_conversations_user2", "conversations", `"user2Id"`, false},
	{"idx_messages_conversation", "messages", `"conversationId"`, false},
}

// EnsureSchema creates every persistent table and index that is missing.
// Existing tables are never altered, so it is safe to run on each start.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	migrator := tx.Migrator()

	for _, model := range PersistentModels() {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
		observability.GlobalLogger.InfoContext(ctx, "created table", slog.String("model", fmt.Sprintf("%T", model)))
	}

	for _, idx := range schemaIndexes {
		if err := tx.Exec(idx.statement()).Error; err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (i indexSpec) statement() string {
	kind := "INDEX"
	if i.unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf(`CREATE %s IF NOT EXISTS %s ON %s (%s)`, kind, i.name, i.table, i.columns)
}

func isAlreadyExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
