package repository

import (
	"context"
	"errors"

	"viktor/internal/models"
	"viktor/internal/observability"
	"viktor/internal/store"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	UsernamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error)
	Search(ctx context.Context, query string) ([]models.UserSummary, error)
	List(ctx context.Context) ([]*models.User, error)
}

// userRepository implements UserRepository
type userRepository struct {
	store   *store.Store
	metrics *observability.DatabaseMetrics
}

// NewUserRepository creates a new user repository
func NewUserRepository(s *store.Store) UserRepository {
	return &userRepository{
		store:   s,
		metrics: observability.NewDatabaseMetrics("users"),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("create")()
	return store.Classify(r.store.DB(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.metrics.TrackQuery("get")()
	var user models.User
	if err := r.store.DB(ctx).Take(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user", id)
		}
		return nil, store.Classify(err)
	}
	return &user, nil
}

// GetByUsername looks the user up case-insensitively.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_username")()
	var user models.User
	res := r.store.DB(ctx).Where("LOWER(username) = LOWER(?)", username).Order("id").Limit(1).Find(&user)
	if res.Error != nil {
		return nil, store.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("user", username)
	}
	return &user, nil
}

// Delete removes the user; posts, comments, likes, conversations and
// messages owned by the user cascade.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()
	res := r.store.DB(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return store.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("user", id)
	}
	return nil
}

func (r *userRepository) UsernamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	defer r.metrics.TrackQuery("usernames")()
	names := make(map[uint]string, len(ids))
	for _, chunk := range chunkIDs(uniqueIDs(ids)) {
		var rows []models.UserSummary
		if err := r.store.DB(ctx).Model(&models.User{}).Select("id", "username").Where("id IN ?", chunk).Scan(&rows).Error; err != nil {
			return nil, store.Classify(err)
		}
		for _, row := range rows {
			names[row.ID] = row.Username
		}
	}
	return names, nil
}

// Search returns users whose username contains query, alphabetically.
func (r *userRepository) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	defer r.metrics.TrackQuery("search")()
	var users []models.UserSummary
	err := r.store.DB(ctx).Model(&models.User{}).
		Select("id", "username").
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, likePattern(query)).
		Order("LOWER(username) ASC, id ASC").
		Scan(&users).Error
	if err != nil {
		return nil, store.Classify(err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	defer r.metrics.TrackQuery("list")()
	var users []*models.User
	if err := r.store.DB(ctx).Order("LOWER(username) ASC, id ASC").Find(&users).Error; err != nil {
		return nil, store.Classify(err)
	}
	return users, nil
}
