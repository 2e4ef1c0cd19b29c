package llm

import (
	"context"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Segment — один фрагмент структурированной реплики: либо текст, либо
// изображение в base64.
type Segment struct {
	Text        string
	ImageMIME   string
	ImageBase64 string
}

func TextSegment(text string) Segment {
	return Segment{Text: text}
}

func ImageSegment(mimeType, base64Data string) Segment {
	return Segment{ImageMIME: mimeType, ImageBase64: base64Data}
}

func (s Segment) IsImage() bool {
	return s.ImageBase64 != ""
}

// Turn — одна реплика истории, не привязанная к конкретному провайдеру.
// Либо Content (плоский текст), либо Segments (структурированная реплика
// с изображениями); Segments имеет приоритет.
type Turn struct {
	Role     Role
	Content  string
	Segments []Segment
}

func (t Turn) HasImages() bool {
	for _, s := range t.Segments {
		if s.IsImage() {
			return true
		}
	}
	return false
}

func HasImages(turns []Turn) bool {
	for _, t := range turns {
		if t.HasImages() {
			return true
		}
	}
	return false
}

// FlattenText сводит реплику к плоскому тексту; изображения заменяются
// текстовым маркером. Используется провайдерами без vision-моделей.
func (t Turn) FlattenText() string {
	if len(t.Segments) == 0 {
		return t.Content
	}
	var parts []string
	for _, s := range t.Segments {
		if s.IsImage() {
			parts = append(parts, "[изображение]")
		} else if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// Options — параметры одного вызова цепочки. Provider/Model/APIKey/Endpoint
// приходят из активной административной конфигурации и применяются только
// к провайдеру с совпадающим именем.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	Endpoint    string
	MaxTokens   int
	Temperature float32
}

// Result — терминальное состояние цепочки: Answered (Provider непустой)
// или Unavailable (Provider пустой, Text — фиксированная заглушка).
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
}

// Provider — один кандидат цепочки фолбэка.
type Provider interface {
	Name() string
	IsConfigured(opts Options) bool
	Generate(ctx context.Context, system string, turns []Turn, opts Options) (string, error)
}
