package models

import (
	"time"
)

// Branch is one node of the organizational hierarchy used to scope
// role-based notification targeting.
type Branch struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code     string  `gorm:"uniqueIndex;not null" json:"code"`
	Name     string  `gorm:"not null" json:"name"`
	ParentID *string `gorm:"type:varchar(36);index" json:"parent_id"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
}

type Role struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
}

// UserRole grants a role to a user, optionally scoped to a branch. A NULL
// BranchID means the grant is global (admins typically carry these).
type UserRole struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   string  `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_user_role_branch" json:"user_id"`
	RoleID   string  `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_user_role_branch" json:"role_id"`
	BranchID *string `gorm:"type:varchar(36);index;uniqueIndex:idx_user_role_branch" json:"branch_id"`

	Role Role `gorm:"foreignKey:RoleID" json:"role"`
}

// UserBranchAssignment links a user to an additional branch beyond their
// home branch (multi-branch staff).
type UserBranchAssignment struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID    string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_user_branch" json:"user_id"`
	BranchID  string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_user_branch" json:"branch_id"`
	IsDefault bool   `gorm:"default:false" json:"is_default"`
}
