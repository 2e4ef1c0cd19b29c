package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"chatserver/internal/adminconfig"
	"chatserver/internal/attachments"
	"chatserver/internal/conversations"
	"chatserver/internal/llm"
	"chatserver/internal/users"

	"github.com/sirupsen/logrus"
)

var ErrQuotaExceeded = errors.New("квота токенов исчерпана")

const (
	maxOutputTokens   = 2048
	answerTemperature = 0.7
)

// FileInput — одно вложение запроса: файл из multipart-формы или картинка
// из буфера обмена, уже декодированная из base64.
type FileInput struct {
	Filename string
	MimeType string
	Data     []byte
}

type RejectedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// SendResult — ответ на отправку сообщения: сохранённая реплика пользователя,
// сохранённая реплика ассистента и список отклонённых вложений.
type SendResult struct {
	UserMessage      *conversations.Message `json:"user_message"`
	AssistantMessage *conversations.Message `json:"assistant_message"`
	RejectedFiles    []RejectedFile         `json:"rejected_files,omitempty"`
}

type Service struct {
	conversations *conversations.Service
	users         *users.Service
	adminConfig   *adminconfig.Service
	chain         *llm.Chain
	store         *attachments.Store
}

func NewService(
	conversationService *conversations.Service,
	userService *users.Service,
	adminConfigService *adminconfig.Service,
	chain *llm.Chain,
	store *attachments.Store,
) *Service {
	return &Service{
		conversations: conversationService,
		users:         userService,
		adminConfig:   adminConfigService,
		chain:         chain,
		store:         store,
	}
}

// SendMessage обрабатывает отправку сообщения в диалог: классификация и
// извлечение вложений, сборка истории, цепочка провайдеров, сохранение
// обеих реплик, учёт токенов и заголовок диалога.
//
// Порядок фиксирован: реплика пользователя сохраняется строго до вызова
// провайдера, реплика ассистента — строго после (включая заглушку при
// полном отказе цепочки).
func (s *Service) SendMessage(ctx context.Context, userID, conversationID int64, text string, files []FileInput) (*SendResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TokenUsed >= user.TokenQuota {
		logrus.Warnf("Пользователь %d исчерпал квоту: %d/%d", userID, user.TokenUsed, user.TokenQuota)
		return nil, ErrQuotaExceeded
	}

	if _, err := s.conversations.GetOwned(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	var (
		rejected      []RejectedFile
		images        []ImageInput
		docParts      []string
		attachRecords []conversations.Attachment
		savedPaths    []string
	)
	// Файлы на диске живут только в рамках запроса.
	defer func() {
		for _, p := range savedPaths {
			s.store.Remove(p)
		}
	}()

	// Вложения обрабатываются последовательно в порядке загрузки, чтобы
	// порядок сегментов в собранной истории был детерминированным.
	for _, f := range files {
		kind := attachments.Classify(f.MimeType, int64(len(f.Data)))
		if kind == attachments.KindRejected {
			rejected = append(rejected, RejectedFile{
				Filename: f.Filename,
				Reason:   rejectReason(f),
			})
			logrus.Warnf("Вложение %q отклонено: %s (%d байт)", f.Filename, f.MimeType, len(f.Data))
			continue
		}

		path, err := s.store.Save(f.Filename, f.Data)
		if err != nil {
			logrus.Errorf("Не удалось сохранить вложение %q: %v", f.Filename, err)
		} else {
			savedPaths = append(savedPaths, path)
		}

		switch kind {
		case attachments.KindImage:
			images = append(images, ImageInput{
				MimeType: attachments.NormalizeMime(f.MimeType),
				Base64:   base64.StdEncoding.EncodeToString(f.Data),
			})
		case attachments.KindDocument:
			extracted := attachments.ExtractText(f.Data, f.MimeType)
			docParts = append(docParts, fmt.Sprintf("Содержимое файла %q:\n%s", f.Filename, extracted))
		}

		attachRecords = append(attachRecords, conversations.Attachment{
			Filename:  f.Filename,
			Mimetype:  attachments.NormalizeMime(f.MimeType),
			SizeBytes: int64(len(f.Data)),
			Path:      path,
		})
	}

	userMsg, err := s.conversations.AddUserMessage(ctx, conversationID, text, attachRecords)
	if err != nil {
		logrus.Errorf("Ошибка при сохранении сообщения пользователя: %v", err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при сохранении сообщения")
	}

	history, err := s.conversations.History(ctx, conversationID)
	if err != nil {
		logrus.Errorf("Ошибка при получении истории диалога %d: %v", conversationID, err)
		history = []conversations.Message{*userMsg}
	}

	docText := ""
	for i, part := range docParts {
		if i > 0 {
			docText += "\n\n"
		}
		docText += part
	}

	turns := AssembleTurns(history, userMsg.ID, docText, images)
	result := s.chain.Generate(ctx, turns, s.buildOptions(ctx))

	aiMsg, err := s.conversations.AddAssistantMessage(ctx, conversationID, result.Text, result.Provider)
	if err != nil {
		logrus.Errorf("Ошибка при сохранении ответа ассистента: %v", err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при сохранении ответа")
	}

	// Учёт токенов и заголовок не должны валить уже состоявшийся ответ.
	userLen := utf8.RuneCountInString(text)
	aiLen := utf8.RuneCountInString(result.Text)
	if err := s.users.RecordUsage(ctx, userID, userLen, aiLen); err != nil {
		logrus.Errorf("Ошибка при учёте токенов пользователя %d: %v", userID, err)
	}
	if err := s.conversations.SeedTitle(ctx, conversationID, text); err != nil {
		logrus.Errorf("Ошибка при обновлении заголовка диалога %d: %v", conversationID, err)
	}

	return &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: aiMsg,
		RejectedFiles:    rejected,
	}, nil
}

func (s *Service) buildOptions(ctx context.Context) llm.Options {
	opts := llm.Options{
		MaxTokens:   maxOutputTokens,
		Temperature: answerTemperature,
	}

	cfg, err := s.adminConfig.GetActive(ctx)
	if err != nil {
		logrus.Warnf("Не удалось получить активную конфигурацию, используются значения по умолчанию: %v", err)
		return opts
	}
	if cfg != nil {
		opts.Provider = cfg.Provider
		opts.Model = cfg.Model
		opts.APIKey = cfg.APIKey
		opts.Endpoint = cfg.Endpoint
	}
	return opts
}

func rejectReason(f FileInput) string {
	if int64(len(f.Data)) > attachments.MaxFileSize {
		return fmt.Sprintf("файл больше %d МиБ", attachments.MaxFileSize>>20)
	}
	return fmt.Sprintf("тип %q не поддерживается", f.MimeType)
}
