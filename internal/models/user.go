package models

import (
	"time"
)

// User is the identity row supplied by the external auth/administration
// layer. The notification core only reads it for targeting and for attaching
// a user id to client-reported delivery events.
type User struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string  `gorm:"uniqueIndex;not null" json:"username"`
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Name     string  `json:"name"`
	Role     string  `gorm:"not null;default:user" json:"role"`
	BranchID *string `gorm:"type:varchar(36);index" json:"branch_id"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
}

type UserResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	BranchID *string `json:"branch_id"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		BranchID: u.BranchID,
	}
}
