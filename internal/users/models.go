package users

import (
	"time"
)

type User struct {
	ID                   int64      `db:"id" json:"id"`
	Email                string     `db:"email" json:"email"`
	Name                 string     `db:"name" json:"name"`
	PasswordHash         *string    `db:"password_hash" json:"-"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	IsAdmin              bool       `db:"is_admin" json:"is_admin"`
	EmailVerified        bool       `db:"email_verified" json:"email_verified"`
	TokenQuota           int64      `db:"token_quota" json:"token_quota"`
	TokenUsed            int64      `db:"token_used" json:"token_used"`
	VerifyToken          *string    `db:"verify_token" json:"-"`
	VerifyTokenExpiresAt *time.Time `db:"verify_token_expires_at" json:"-"`
	ResetToken           *string    `db:"reset_token" json:"-"`
	ResetTokenExpiresAt  *time.Time `db:"reset_token_expires_at" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}
