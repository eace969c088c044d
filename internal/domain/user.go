package domain

import (
	"time"
)

// User represents an account in the system.
// Maps to the users table.
type User struct {
	ID                        int64      `json:"id" db:"id"`
	Email                     string     `json:"email" db:"email"`
	Name                      string     `json:"name" db:"name"`
	AvatarPath                *string    `json:"avatar_path,omitempty" db:"avatar_path"`
	PasswordHash              string     `json:"-" db:"password_hash"`
	IsActive                  bool       `json:"is_active" db:"is_active"`
	IsStaff                   bool       `json:"is_staff" db:"is_staff"`
	IsSuperuser               bool       `json:"is_superuser" db:"is_superuser"`
	EmailNotificationsEnabled bool       `json:"email_notifications_enabled" db:"email_notifications_enabled"`
	CreatedAt                 time.Time  `json:"created_at" db:"created_at"`
	LastLoginAt               *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// DisplayName returns the name shown to other participants
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// CanNotify reports whether the user may receive email notifications
func (u *User) CanNotify() bool {
	return u.IsActive && u.Email != "" && u.EmailNotificationsEnabled
}

// UserRegister represents data needed to register a new user
type UserRegister struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=150"`
	Password string `json:"password" binding:"required"`
}

// UserProfileUpdate represents a profile patch
type UserProfileUpdate struct {
	Name                      *string `json:"name" binding:"omitempty,max=150"`
	EmailNotificationsEnabled *bool   `json:"email_notifications_enabled"`
}

// UserResponse represents the user returned to clients
type UserResponse struct {
	ID                        int64   `json:"id"`
	Email                     string  `json:"email"`
	Name                      string  `json:"name"`
	AvatarPath                *string `json:"avatar_path,omitempty"`
	EmailNotificationsEnabled bool    `json:"email_notifications_enabled"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:                        u.ID,
		Email:                     u.Email,
		Name:                      u.Name,
		AvatarPath:                u.AvatarPath,
		EmailNotificationsEnabled: u.EmailNotificationsEnabled,
	}
}

// User-related errors
var (
	ErrUserNotFound = NewError("USER_NOT_FOUND", "User not found")
	ErrEmailExists  = NewError("EMAIL_EXISTS", "Email already registered")
	ErrUserInactive = NewError("INACTIVE_USER", "Account is not activated")
)
