package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) repositories.UserRepository {
	return &userRepository{db: db}
}

// FindByIDs retrieves all users whose ids are in the given set
func (r *userRepository) FindByIDs(ctx context.Context, ids []string) ([]*entities.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*entities.User
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	return users, err
}
