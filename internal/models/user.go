// Package models contains data structures for the marketplace domain.
package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role is the single authorization signal carried by a profile.
type Role string

const (
	RoleFreelancer Role = "freelancer"
	RoleEmployer   Role = "employer"
	RoleAdmin      Role = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleFreelancer, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// Auth providers recorded on a user.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is the authentication identity. Its profile shares the same id.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"`
	AuthProvider string         `gorm:"not null;default:password" json:"auth_provider"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Profile      *Profile       `gorm:"foreignKey:ID;references:ID" json:"profile,omitempty"`
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile holds the public and authorization attributes of a user.
type Profile struct {
	ID          uint                        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Role        Role                        `gorm:"type:varchar(20);not null;default:freelancer;index" json:"role"`
	FullName    string                      `gorm:"size:120" json:"full_name"`
	Headline    string                      `gorm:"size:160" json:"headline"`
	Bio         string                      `gorm:"type:text" json:"bio"`
	AvatarURL   string                      `json:"avatar_url"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`
	HourlyRate  int64                       `json:"hourly_rate"`
	IsOnboarded bool                        `gorm:"not null;default:false" json:"is_onboarded"`
	IsSuspended bool                        `gorm:"not null;default:false;index" json:"is_suspended"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}
