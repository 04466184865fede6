package repository

import (
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	return &user, err
}

// FindActiveIDs filters ids down to users that exist and are active.
// Targeting uses it to drop recipients that were deactivated after the
// producing event was created.
func (r *UserRepository) FindActiveIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []string
	err := r.db.Model(&models.User{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Pluck("id", &out).Error
	return out, err
}
