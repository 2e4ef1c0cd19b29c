package chat

import (
	"testing"

	"chatserver/internal/conversations"
	"chatserver/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleTurnsPlainHistory(t *testing.T) {
	history := []conversations.Message{
		{ID: 1, Role: conversations.RoleUser, Content: "привет"},
		{ID: 2, Role: conversations.RoleAssistant, Content: "здравствуйте"},
		{ID: 3, Role: conversations.RoleUser, Content: "как дела?"},
	}

	turns := AssembleTurns(history, 3, "", nil)

	require.Len(t, turns, 3)
	assert.Equal(t, llm.Turn{Role: llm.RoleUser, Content: "привет"}, turns[0])
	assert.Equal(t, llm.Turn{Role: llm.RoleAssistant, Content: "здравствуйте"}, turns[1])
	assert.Equal(t, llm.Turn{Role: llm.RoleUser, Content: "как дела?"}, turns[2])
}

func TestAssembleTurnsCurrentTurnWithImages(t *testing.T) {
	history := []conversations.Message{
		{ID: 1, Role: conversations.RoleUser, Content: "что на фото?"},
	}
	images := []ImageInput{
		{MimeType: "image/png", Base64: "Zmlyc3Q="},
		{MimeType: "image/jpeg", Base64: "c2Vjb25k"},
	}

	turns := AssembleTurns(history, 1, "", images)

	require.Len(t, turns, 1)
	require.Len(t, turns[0].Segments, 3)
	assert.Equal(t, "что на фото?", turns[0].Segments[0].Text)
	assert.False(t, turns[0].Segments[0].IsImage())
	// изображения идут после текста и в порядке загрузки
	assert.Equal(t, "Zmlyc3Q=", turns[0].Segments[1].ImageBase64)
	assert.Equal(t, "c2Vjb25k", turns[0].Segments[2].ImageBase64)
}

func TestAssembleTurnsEmptyTextGetsDefaultVisionPrompt(t *testing.T) {
	history := []conversations.Message{
		{ID: 1, Role: conversations.RoleUser, Content: "  "},
	}
	images := []ImageInput{{MimeType: "image/png", Base64: "Zm90bw=="}}

	turns := AssembleTurns(history, 1, "", images)

	require.Len(t, turns, 1)
	assert.Equal(t, defaultVisionPrompt, turns[0].Segments[0].Text)
}

func TestAssembleTurnsImagesWithDocumentText(t *testing.T) {
	history := []conversations.Message{
		{ID: 1, Role: conversations.RoleUser, Content: "сравни"},
	}
	images := []ImageInput{{MimeType: "image/png", Base64: "Zm90bw=="}}

	turns := AssembleTurns(history, 1, "Содержимое файла \"отчёт.pdf\":\nитого 42", images)

	require.Len(t, turns, 1)
	assert.Contains(t, turns[0].Segments[0].Text, "сравни")
	assert.Contains(t, turns[0].Segments[0].Text, "итого 42")
}

func TestAssembleTurnsDocumentOnlyStaysPlainText(t *testing.T) {
	history := []conversations.Message{
		{ID: 1, Role: conversations.RoleUser, Content: "о чём документ?"},
	}

	turns := AssembleTurns(history, 1, "Содержимое файла \"договор.docx\":\nпредмет договора", nil)

	require.Len(t, turns, 1)
	assert.Empty(t, turns[0].Segments)
	assert.Contains(t, turns[0].Content, "о чём документ?")
	assert.Contains(t, turns[0].Content, "предмет договора")
}

func TestAssembleTurnsEmptyTextGetsDefaultDocumentPrompt(t *testing.T) {
	history := []conversations.Message{
		{ID: 1, Role: conversations.RoleUser, Content: ""},
	}

	turns := AssembleTurns(history, 1, "Содержимое файла \"заметки.txt\":\nтекст", nil)

	require.Len(t, turns, 1)
	assert.Contains(t, turns[0].Content, defaultDocumentPrompt)
}

func TestAssembleTurnsOldAttachmentsBecomeMarkers(t *testing.T) {
	history := []conversations.Message{
		{
			ID:      1,
			Role:    conversations.RoleUser,
			Content: "посмотри на фото",
			Attachments: []conversations.Attachment{
				{Filename: "кот.png", Mimetype: "image/png"},
			},
		},
		{ID: 2, Role: conversations.RoleAssistant, Content: "на фото кот"},
		{ID: 3, Role: conversations.RoleUser, Content: "а теперь?"},
	}
	images := []ImageInput{{MimeType: "image/jpeg", Base64: "bmV3"}}

	turns := AssembleTurns(history, 3, "", images)

	require.Len(t, turns, 3)
	// старая реплика — плоский текст с маркером, без живых изображений
	assert.Empty(t, turns[0].Segments)
	assert.Equal(t, "посмотри на фото\n[Прикреплённый файл: кот.png (image/png)]", turns[0].Content)
	// живая нагрузка только у текущей реплики
	assert.True(t, turns[2].HasImages())
	assert.False(t, turns[0].HasImages())
}

func TestAssembleTurnsCurrentTurnBeatsStoredAttachments(t *testing.T) {
	// текущая реплика уже сохранена с метаданными вложений, но живые
	// изображения всё равно важнее маркеров
	history := []conversations.Message{
		{
			ID:      1,
			Role:    conversations.RoleUser,
			Content: "что это?",
			Attachments: []conversations.Attachment{
				{Filename: "схема.png", Mimetype: "image/png"},
			},
		},
	}
	images := []ImageInput{{MimeType: "image/png", Base64: "c2NoZW1h"}}

	turns := AssembleTurns(history, 1, "", images)

	require.Len(t, turns, 1)
	require.Len(t, turns[0].Segments, 2)
	assert.True(t, turns[0].HasImages())
}
