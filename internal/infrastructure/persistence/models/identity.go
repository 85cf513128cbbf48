package models

import (
	"time"

	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/domain/shared"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Email                     string              `gorm:"type:varchar(254);not null;uniqueIndex"`
	EmailVerified             bool                `gorm:"not null;default:false"`
	EmailVerificationCode     string              `gorm:"type:varchar(10)"`
	VerificationCodeCreatedAt *time.Time          `gorm:"index"`
	PasswordHash              string              `gorm:"type:varchar(255);not null"`
	DisplayName               string              `gorm:"type:varchar(200)"`
	Avatar                    string              `gorm:"type:varchar(500)"`
	Status                    identity.UserStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	IsAdmin                   bool                `gorm:"not null;default:false"`
	PreferredLanguage         string              `gorm:"type:varchar(10)"`
	LastLoginAt               *time.Time          `gorm:"index"`
	LastLoginIP               string              `gorm:"type:varchar(45)"`
	FailedAttempts            int                 `gorm:"not null;default:0"`
	LockedUntil               *time.Time
	PasswordChangedAt         *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	user := &identity.User{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Email:                     m.Email,
		EmailVerified:             m.EmailVerified,
		EmailVerificationCode:     m.EmailVerificationCode,
		VerificationCodeCreatedAt: m.VerificationCodeCreatedAt,
		PasswordHash:              m.PasswordHash,
		DisplayName:               m.DisplayName,
		Avatar:                    m.Avatar,
		Status:                    m.Status,
		IsAdmin:                   m.IsAdmin,
		PreferredLanguage:         m.PreferredLanguage,
		LastLoginAt:               m.LastLoginAt,
		LastLoginIP:               m.LastLoginIP,
		FailedAttempts:            m.FailedAttempts,
		LockedUntil:               m.LockedUntil,
		PasswordChangedAt:         m.PasswordChangedAt,
	}
	return user
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.EmailVerified = u.EmailVerified
	m.EmailVerificationCode = u.EmailVerificationCode
	m.VerificationCodeCreatedAt = u.VerificationCodeCreatedAt
	m.PasswordHash = u.PasswordHash
	m.DisplayName = u.DisplayName
	m.Avatar = u.Avatar
	m.Status = u.Status
	m.IsAdmin = u.IsAdmin
	m.PreferredLanguage = u.PreferredLanguage
	m.LastLoginAt = u.LastLoginAt
	m.LastLoginIP = u.LastLoginIP
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.PasswordChangedAt = u.PasswordChangedAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
