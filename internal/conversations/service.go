package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrConversationNotFound = errors.New("диалог не найден")
	ErrAccessDenied         = errors.New("диалог принадлежит другому пользователю")
)

// DefaultTitle — заголовок-заглушка нового диалога; SeedTitle заменяет его
// после первого сообщения.
const DefaultTitle = "Новый диалог"

// sentinelTitles — заглушки, при которых SeedTitle ещё имеет право
// переименовать диалог (включая варианты из старых клиентов).
var sentinelTitles = []string{DefaultTitle, "New Conversation", "New Chat"}

const (
	titleWordLimit = 6
	titleMaxLen    = 50
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, userID int64, title string) (*Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	conv, err := s.repo.CreateConversation(ctx, userID, title)
	if err != nil {
		logrus.Errorf("Ошибка при создании диалога пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при создании диалога")
	}
	return conv, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]Conversation, error) {
	list, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		logrus.Errorf("Ошибка при получении диалогов пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера")
	}
	return list, nil
}

// GetOwned возвращает диалог, только если он принадлежит userID.
func (s *Service) GetOwned(ctx context.Context, userID, conversationID int64) (*Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		logrus.Errorf("Ошибка при получении диалога %d: %v", conversationID, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера")
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if conv.UserID != userID {
		return nil, ErrAccessDenied
	}
	return conv, nil
}

func (s *Service) Delete(ctx context.Context, userID, conversationID int64) error {
	if _, err := s.GetOwned(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.repo.DeleteConversation(ctx, conversationID); err != nil {
		logrus.Errorf("Ошибка при удалении диалога %d: %v", conversationID, err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	return nil
}

func (s *Service) Messages(ctx context.Context, userID, conversationID int64) ([]Message, error) {
	if _, err := s.GetOwned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	messages, err := s.repo.GetMessages(ctx, conversationID)
	if err != nil {
		logrus.Errorf("Ошибка при получении сообщений диалога %d: %v", conversationID, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера")
	}
	return messages, nil
}

func (s *Service) AddUserMessage(ctx context.Context, conversationID int64, content string, attachments []Attachment) (*Message, error) {
	return s.repo.CreateMessage(ctx, conversationID, RoleUser, content, nil, attachments)
}

func (s *Service) AddAssistantMessage(ctx context.Context, conversationID int64, content string, provider string) (*Message, error) {
	var p *string
	if provider != "" {
		p = &provider
	}
	return s.repo.CreateMessage(ctx, conversationID, RoleAssistant, content, p, nil)
}

func (s *Service) History(ctx context.Context, conversationID int64) ([]Message, error) {
	return s.repo.GetMessages(ctx, conversationID)
}

// SeedTitle переименовывает диалог по первому сообщению пользователя, если
// заголовок ещё равен заглушке.
func (s *Service) SeedTitle(ctx context.Context, conversationID int64, userText string) error {
	title := DeriveTitle(userText)
	if title == "" {
		return nil
	}
	return s.repo.UpdateTitleIf(ctx, conversationID, title, sentinelTitles)
}

// DeriveTitle строит заголовок из первых шести слов текста, обрезая до 50
// символов с многоточием.
func DeriveTitle(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}
	title := strings.Join(words, " ")
	if runes := []rune(title); len(runes) > titleMaxLen {
		title = string(runes[:titleMaxLen]) + "..."
	}
	return title
}
