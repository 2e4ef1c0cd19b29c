package adminconfig

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetActive(ctx context.Context) (*AdminConfig, error) {
	query := `
		SELECT id, provider, api_key, endpoint, model, default_token_quota, is_active, created_at, updated_at
		FROM admin_configs
		WHERE is_active
		LIMIT 1
	`

	var cfg AdminConfig
	err := r.db.GetContext(ctx, &cfg, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении активной конфигурации: %w", err)
	}
	return &cfg, nil
}

// ReplaceActive снимает флаг активности со всех строк и вставляет новую
// активную конфигурацию в одной транзакции.
func (r *Repository) ReplaceActive(ctx context.Context, provider, apiKey, endpoint, model string, defaultTokenQuota int64) (*AdminConfig, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии транзакции: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE admin_configs SET is_active = FALSE, updated_at = NOW() WHERE is_active`); err != nil {
		return nil, fmt.Errorf("ошибка при деактивации конфигураций: %w", err)
	}

	insert := `
		INSERT INTO admin_configs (provider, api_key, endpoint, model, default_token_quota, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, provider, api_key, endpoint, model, default_token_quota, is_active, created_at, updated_at
	`

	var cfg AdminConfig
	if err := tx.GetContext(ctx, &cfg, insert, provider, apiKey, endpoint, model, defaultTokenQuota); err != nil {
		return nil, fmt.Errorf("ошибка при сохранении конфигурации: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return &cfg, nil
}
