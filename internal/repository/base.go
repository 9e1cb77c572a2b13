// Package repository provides data access layer implementations for the application.
package repository

import (
	"strings"

	"viktor/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// idBatchSize keeps IN lists well below the bind-variable limits of both drivers.
const idBatchSize = 500

// lockPost takes a row lock on the post for the rest of tx. SQLite ignores
// the FOR UPDATE clause; there the immediate transaction already holds the
// database write lock.
func lockPost(tx *gorm.DB, postID uint) error {
	var post models.Post
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", postID).
		Limit(1).
		Find(&post)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("post", postID)
	}
	return nil
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

func chunkIDs(ids []uint) [][]uint {
	var chunks [][]uint
	for len(ids) > idBatchSize {
		chunks = append(chunks, ids[:idBatchSize])
		ids = ids[idBatchSize:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
