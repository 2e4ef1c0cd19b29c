package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, password_hash, is_active, is_admin, email_verified,
		token_quota, token_used, verify_token, verify_token_expires_at,
		reset_token, reset_token_expires_at, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, email, name string, passwordHash *string, tokenQuota int64) (*User, error) {
	query := `
		INSERT INTO users (email, name, password_hash, token_quota)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	var user User
	err := r.db.GetContext(ctx, &user, query, email, name, passwordHash, tokenQuota)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}
	return &user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении пользователя по email: %w", err)
	}
	return &user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении пользователя по ID: %w", err)
	}
	return &user, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	var list []User
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("ошибка при получении списка пользователей: %w", err)
	}
	return list, nil
}

// AddTokenUsage прибавляет amount к счётчику token_used одним атомарным
// UPDATE-выражением: конкурентные запросы одного пользователя не теряют
// обновления.
func (r *Repository) AddTokenUsage(ctx context.Context, id int64, amount int64) error {
	query := `UPDATE users SET token_used = token_used + $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, amount); err != nil {
		return fmt.Errorf("ошибка при обновлении счётчика токенов пользователя %d: %w", id, err)
	}
	return nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, active); err != nil {
		return fmt.Errorf("ошибка при изменении статуса пользователя %d: %w", id, err)
	}
	return nil
}

func (r *Repository) SetTokenQuota(ctx context.Context, id int64, quota int64) error {
	query := `UPDATE users SET token_quota = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, quota); err != nil {
		return fmt.Errorf("ошибка при изменении квоты пользователя %d: %w", id, err)
	}
	return nil
}

func (r *Repository) ResetTokenUsage(ctx context.Context, id int64) error {
	query := `UPDATE users SET token_used = 0, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ошибка при сбросе счётчика токенов пользователя %d: %w", id, err)
	}
	return nil
}

func (r *Repository) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token = $2, reset_token_expires_at = $3, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, token, expiresAt); err != nil {
		return fmt.Errorf("ошибка при сохранении токена сброса пароля: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByResetToken(ctx context.Context, token string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении пользователя по токену сброса: %w", err)
	}
	return &user, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("ошибка при обновлении пароля пользователя %d: %w", id, err)
	}
	return nil
}

func (r *Repository) SetVerifyToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	query := `UPDATE users SET verify_token = $2, verify_token_expires_at = $3, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, token, expiresAt); err != nil {
		return fmt.Errorf("ошибка при сохранении токена подтверждения email: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByVerifyToken(ctx context.Context, token string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verify_token = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении пользователя по токену подтверждения: %w", err)
	}
	return &user, nil
}

func (r *Repository) MarkEmailVerified(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET email_verified = TRUE, verify_token = NULL, verify_token_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ошибка при подтверждении email пользователя %d: %w", id, err)
	}
	return nil
}
