package conversations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateConversation(ctx context.Context, userID int64, title string) (*Conversation, error) {
	query := `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at, updated_at
	`

	var conv Conversation
	err := r.db.GetContext(ctx, &conv, query, userID, title)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании диалога: %w", err)
	}
	return &conv, nil
}

func (r *Repository) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = $1`

	var conv Conversation
	err := r.db.GetContext(ctx, &conv, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении диалога %d: %w", id, err)
	}
	return &conv, nil
}

func (r *Repository) ListConversations(ctx context.Context, userID int64) ([]Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	var list []Conversation
	if err := r.db.SelectContext(ctx, &list, query, userID); err != nil {
		return nil, fmt.Errorf("ошибка при получении списка диалогов пользователя %d: %w", userID, err)
	}
	return list, nil
}

// DeleteConversation удаляет диалог; сообщения и вложения уходят каскадом
// по внешним ключам.
func (r *Repository) DeleteConversation(ctx context.Context, id int64) error {
	query := `DELETE FROM conversations WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ошибка при удалении диалога %d: %w", id, err)
	}
	return nil
}

// UpdateTitleIf меняет заголовок только если текущий совпадает с одним из
// перечисленных; повторный вызов для того же диалога становится no-op.
func (r *Repository) UpdateTitleIf(ctx context.Context, id int64, title string, currentTitles []string) error {
	query := `
		UPDATE conversations
		SET title = $2, updated_at = NOW()
		WHERE id = $1 AND title = ANY($3)
	`

	if _, err := r.db.ExecContext(ctx, query, id, title, pq.Array(currentTitles)); err != nil {
		return fmt.Errorf("ошибка при обновлении заголовка диалога %d: %w", id, err)
	}
	return nil
}

// CreateMessage вставляет сообщение вместе с записями о вложениях и поднимает
// updated_at диалога — всё в одной транзакции.
func (r *Repository) CreateMessage(ctx context.Context, conversationID int64, role, content string, provider *string, attachments []Attachment) (*Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка при открытии транзакции: %w", err)
	}
	defer tx.Rollback()

	insertMessage := `
		INSERT INTO messages (conversation_id, role, content, provider)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, role, content, provider, created_at
	`

	var msg Message
	if err := tx.GetContext(ctx, &msg, insertMessage, conversationID, role, content, provider); err != nil {
		return nil, fmt.Errorf("ошибка при сохранении сообщения: %w", err)
	}

	insertAttachment := `
		INSERT INTO message_attachments (message_id, filename, mimetype, size_bytes, path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, message_id, filename, mimetype, size_bytes, path
	`

	for _, att := range attachments {
		var saved Attachment
		if err := tx.GetContext(ctx, &saved, insertAttachment, msg.ID, att.Filename, att.Mimetype, att.SizeBytes, att.Path); err != nil {
			return nil, fmt.Errorf("ошибка при сохранении вложения %q: %w", att.Filename, err)
		}
		msg.Attachments = append(msg.Attachments, saved)
	}

	touch := `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, touch, conversationID); err != nil {
		return nil, fmt.Errorf("ошибка при обновлении диалога %d: %w", conversationID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return &msg, nil
}

// GetMessages возвращает сообщения диалога в хронологическом порядке вместе
// с метаданными вложений.
func (r *Repository) GetMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	query := `
		SELECT id, conversation_id, role, content, provider, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	var messages []Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("ошибка при получении сообщений диалога %d: %w", conversationID, err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	ids := make([]int64, len(messages))
	index := make(map[int64]*Message, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
		index[messages[i].ID] = &messages[i]
	}

	attachmentQuery, args, err := sqlx.In(`
		SELECT id, message_id, filename, mimetype, size_bytes, path
		FROM message_attachments
		WHERE message_id IN (?)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка при подготовке запроса вложений: %w", err)
	}

	var attachments []Attachment
	if err := r.db.SelectContext(ctx, &attachments, r.db.Rebind(attachmentQuery), args...); err != nil {
		return nil, fmt.Errorf("ошибка при получении вложений диалога %d: %w", conversationID, err)
	}
	for _, att := range attachments {
		if msg, ok := index[att.MessageID]; ok {
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	return messages, nil
}
