package repository

import (
	"time"

	"github.com/storelab/commerce-gateway/internal/model"
)

type UserEntity struct {
	ID                  int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name                string     `gorm:"column:name;not null"`
	Email               string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	Role                string     `gorm:"column:role;not null;default:user"`
	ResetTokenHash      *string    `gorm:"column:reset_token_hash"`
	ResetTokenExpiresAt *time.Time `gorm:"column:reset_token_expires_at"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	return &UserEntity{
		ID:                  m.ID,
		Name:                m.Name,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		Role:                m.Role,
		ResetTokenHash:      m.ResetTokenHash,
		ResetTokenExpiresAt: m.ResetTokenExpiresAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func toUserModel(e *UserEntity) *model.User {
	return &model.User{
		ID:                  e.ID,
		Name:                e.Name,
		Email:               e.Email,
		PasswordHash:        e.PasswordHash,
		Role:                e.Role,
		ResetTokenHash:      e.ResetTokenHash,
		ResetTokenExpiresAt: e.ResetTokenExpiresAt,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}
