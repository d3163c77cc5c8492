package models

import (
	"time"
)

// User is owned by the auth collaborator; this subsystem reads it only to
// anchor each user's retention window at account creation.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role      string    `gorm:"size:20;not null;index" json:"role"` // CUSTOMER | ADMIN
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == "ADMIN" }
