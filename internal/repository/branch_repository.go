package repository

import (
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

type BranchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

func (r *BranchRepository) FindByID(id string) (*models.Branch, error) {
	var branch models.Branch
	err := r.db.Where("id = ?", id).First(&branch).Error
	return &branch, err
}

// FindUserIDsByRoles returns the ids of active users holding any of the
// named roles scoped to branchID, plus users holding them globally
// (user_role rows with a NULL branch_id, e.g. admins).
func (r *BranchRepository) FindUserIDsByRoles(roleNames []string, branchID string) ([]string, error) {
	if len(roleNames) == 0 {
		return nil, nil
	}
	var out []string
	q := r.db.Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("roles.name IN ? AND users.is_active = ?", roleNames, true)
	if branchID != "" {
		q = q.Where("user_roles.branch_id = ? OR user_roles.branch_id IS NULL", branchID)
	} else {
		q = q.Where("user_roles.branch_id IS NULL")
	}
	err := q.Distinct().Pluck("user_roles.user_id", &out).Error
	return out, err
}

// FindAssignedUserIDs returns users explicitly assigned to a branch.
func (r *BranchRepository) FindAssignedUserIDs(branchID string) ([]string, error) {
	var out []string
	err := r.db.Model(&models.UserBranchAssignment{}).
		Where("branch_id = ?", branchID).
		Distinct().
		Pluck("user_id", &out).Error
	return out, err
}
