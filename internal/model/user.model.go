package model

import (
	"errors"
	"regexp"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type User struct {
	ID                  int64      `json:"id"    db:"id"    gorm:"primaryKey;autoIncrement;column:id"`
	Name                string     `json:"name"  db:"name"  gorm:"column:name;not null"`
	Email               string     `json:"email" db:"email" gorm:"column:email;not null;uniqueIndex"`
	PasswordHash        string     `json:"-"     db:"password_hash" gorm:"column:password_hash;not null"`
	Role                string     `json:"role"  db:"role"  gorm:"column:role;not null;default:user"`
	ResetTokenHash      *string    `json:"-"     db:"reset_token_hash" gorm:"column:reset_token_hash"`
	ResetTokenExpiresAt *time.Time `json:"-"     db:"reset_token_expires_at" gorm:"column:reset_token_expires_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p SignupRequest) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Email == "" || !emailRe.MatchString(p.Email) {
		return errors.New("a valid email is required")
	}
	if len(p.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p LoginRequest) Validate() error {
	if p.Email == "" || p.Password == "" {
		return errors.New("email and password are required")
	}
	return nil
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

func (p ResetPasswordRequest) Validate() error {
	if p.ResetToken == "" {
		return errors.New("reset_token is required")
	}
	if len(p.NewPassword) < 8 {
		return errors.New("new_password must be at least 8 characters")
	}
	return nil
}
