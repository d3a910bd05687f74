package model

import (
	"strings"
	"time"
)

// UserRole is the user's role in the permission hierarchy.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
	RoleUser      UserRole = "user"
)

// level orders roles: admin > moderator > user. Unknown roles rank below
// everything.
func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleModerator:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// HasPermission reports whether the role meets or exceeds required.
func (r UserRole) HasPermission(required UserRole) bool {
	return r.level() >= required.level()
}

// User is a stored account. PasswordHash never leaves the service;
// Public() is the outward shape.
type User struct {
	ID                int64      `db:"id"`
	Email             string     `db:"email"`
	Username          *string    `db:"username"`
	FirstName         string     `db:"first_name"`
	LastName          string     `db:"last_name"`
	PasswordHash      string     `db:"password_hash"`
	IsActive          bool       `db:"is_active"`
	IsVerified        bool       `db:"is_verified"`
	Role              UserRole   `db:"role"`
	PhoneNumber       *string    `db:"phone_number"`
	Bio               *string    `db:"bio"`
	ProfilePictureURL *string    `db:"profile_picture_url"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	LastLogin         *time.Time `db:"last_login"`
	DeletedAt         *time.Time `db:"deleted_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// PublicUser is the sanitized account shape returned by the API.
type PublicUser struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	Username          *string    `json:"username,omitempty"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	FullName          string     `json:"full_name"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	Role              UserRole   `json:"role"`
	PhoneNumber       *string    `json:"phone_number,omitempty"`
	Bio               *string    `json:"bio,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
}

// Public returns the user without sensitive fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		FullName:          u.FullName(),
		IsActive:          u.IsActive,
		IsVerified:        u.IsVerified,
		Role:              u.Role,
		PhoneNumber:       u.PhoneNumber,
		Bio:               u.Bio,
		ProfilePictureURL: u.ProfilePictureURL,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
		LastLogin:         u.LastLogin,
	}
}
