package adminconfig

import (
	"time"
)

// AdminConfig — административная конфигурация провайдера. Активной может
// быть не больше одной строки; активация снимает флаг с остальных.
type AdminConfig struct {
	ID                int64     `db:"id" json:"id"`
	Provider          string    `db:"provider" json:"provider"`
	APIKey            string    `db:"api_key" json:"-"`
	Endpoint          string    `db:"endpoint" json:"endpoint"`
	Model             string    `db:"model" json:"model"`
	DefaultTokenQuota int64     `db:"default_token_quota" json:"default_token_quota"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// MaskedAPIKey показывает только хвост ключа, сам ключ наружу не отдаётся.
func (c *AdminConfig) MaskedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	runes := []rune(c.APIKey)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
