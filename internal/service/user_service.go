package service

import (
	"context"
	"errors"
	"strings"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/repository"
)

// UserService covers account records. Credentials arrive already hashed.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register stores a new user. Duplicate usernames or emails surface as
// constraint violations.
func (s *UserService) Register(ctx context.Context, username, email, passwordHash string) (user *models.User, err error) {
	span, ctx := observability.NewSpan(ctx, "user.register")
	defer func() { finishSpan(ctx, span, "register", err) }()

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	switch {
	case username == "":
		return nil, models.NewValidationError("Username is required")
	case len(username) > 50:
		return nil, models.NewValidationError("Username too long (max 50 characters)")
	case email == "" || !strings.Contains(email, "@"):
		return nil, models.NewValidationError("A valid email is required")
	case passwordHash == "":
		return nil, models.NewValidationError("Password is required")
	}

	user = &models.User{Username: username, Email: email, Password: passwordHash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IsAdmin reports whether userID belongs to an admin. Unknown users are not
// admins.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

// DeleteUser removes userID and everything that references them. Only admins
// may do this.
func (s *UserService) DeleteUser(ctx context.Context, adminID, userID uint) (err error) {
	ctx = observability.WithUserID(ctx, adminID)
	span, ctx := observability.NewSpan(ctx, "user.delete",
		observability.IDAttr("admin.id", adminID),
		observability.IDAttr("user.id", userID),
	)
	defer func() { finishSpan(ctx, span, "delete_user", err) }()

	admin, err := s.IsAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError("Admin access required")
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	observability.GlobalLogger.InfoContext(ctx, "user deleted by admin",
		"deleted_user_id", userID,
	)
	return nil
}
