package database

import "viktor/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM
// models, parents before children so foreign keys resolve on creation.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Conversation{},
		&models.Message{},
	}
}
