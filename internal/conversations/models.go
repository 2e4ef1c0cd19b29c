package conversations

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Message struct {
	ID             int64        `db:"id" json:"id"`
	ConversationID int64        `db:"conversation_id" json:"conversation_id"`
	Role           string       `db:"role" json:"role"`
	Content        string       `db:"content" json:"content"`
	Provider       *string      `db:"provider" json:"provider,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	Attachments    []Attachment `db:"-" json:"attachments,omitempty"`
}

type Attachment struct {
	ID        int64  `db:"id" json:"id"`
	MessageID int64  `db:"message_id" json:"message_id"`
	Filename  string `db:"filename" json:"filename"`
	Mimetype  string `db:"mimetype" json:"mimetype"`
	SizeBytes int64  `db:"size_bytes" json:"size_bytes"`
	Path      string `db:"path" json:"-"`
}
