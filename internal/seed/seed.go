// Package seed provides database seeding for the bootstrap admin and for
// development demo data.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/store"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminOptions describes the bootstrap admin account.
type AdminOptions struct {
	Username string
	Email    string
	Password string
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

// ErrAdminPasswordMissing is returned when no admin password is configured.
var ErrAdminPasswordMissing = errors.New("ADMIN_PASSWORD must be set to seed the admin user")

// Admin inserts the bootstrap admin with a bcrypt-hashed password. If a user
// with the same username already exists nothing is written and created is
// false.
func Admin(ctx context.Context, s *store.Store, opts AdminOptions) (created bool, err error) {
	username := strings.TrimSpace(opts.Username)
	email := strings.TrimSpace(opts.Email)
	if username == "" || email == "" {
		return false, models.NewValidationError("Admin username and email are required")
	}
	if opts.Password == "" {
		return false, ErrAdminPasswordMissing
	}

	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.Password), cost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{Username: username, Email: email, Password: string(hashed), IsAdmin: true}
	err = s.Atomic(ctx, "seed_admin", func(tx *gorm.DB) error {
		created = false
		var existing models.User
		res := tx.Select("id").Where("username = ?", username).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			admin.ID = existing.ID
			return nil
		}
		admin.ID = 0
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		observability.GlobalLogger.InfoContext(ctx, "admin user inserted",
			slog.String("username", username),
			slog.Uint64("id", uint64(admin.ID)),
		)
	} else {
		observability.GlobalLogger.InfoContext(ctx, "admin user already exists, skipping",
			slog.String("username", username),
		)
	}
	return created, nil
}
