package chat

import (
	"fmt"
	"strings"

	"chatserver/internal/conversations"
	"chatserver/internal/llm"
)

const (
	defaultVisionPrompt   = "Проанализируй прикреплённые изображения."
	defaultDocumentPrompt = "Проанализируй содержимое прикреплённых документов."
)

// ImageInput — изображение текущего запроса, уже закодированное в base64.
type ImageInput struct {
	MimeType string
	Base64   string
}

// AssembleTurns строит историю для провайдера из сохранённых сообщений.
// Живую мультимодальную нагрузку (docText, images) получает только текущая
// реплика currentID; реплики прошлых запросов представляются плоским текстом
// с маркерами вложений. Функция чистая: ничего не читает и не пишет, кроме
// своих аргументов.
func AssembleTurns(history []conversations.Message, currentID int64, docText string, images []ImageInput) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history))
	for _, msg := range history {
		if msg.Role == conversations.RoleAssistant {
			turns = append(turns, llm.Turn{Role: llm.RoleAssistant, Content: msg.Content})
			continue
		}

		switch {
		case msg.ID == currentID && len(images) > 0:
			text := msg.Content
			if strings.TrimSpace(text) == "" {
				text = defaultVisionPrompt
			}
			if docText != "" {
				text += "\n\n" + docText
			}
			segments := make([]llm.Segment, 0, len(images)+1)
			segments = append(segments, llm.TextSegment(text))
			for _, img := range images {
				segments = append(segments, llm.ImageSegment(img.MimeType, img.Base64))
			}
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Segments: segments})

		case msg.ID == currentID && docText != "":
			text := msg.Content
			if strings.TrimSpace(text) == "" {
				text = defaultDocumentPrompt
			}
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: text + "\n\n" + docText})

		case len(msg.Attachments) > 0:
			var b strings.Builder
			b.WriteString(msg.Content)
			for _, att := range msg.Attachments {
				fmt.Fprintf(&b, "\n[Прикреплённый файл: %s (%s)]", att.Filename, att.Mimetype)
			}
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: b.String()})

		default:
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: msg.Content})
		}
	}
	return turns
}
