package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	openaiDefaultModel       = "gpt-4o-mini"
	openaiDefaultVisionModel = "gpt-4o"
)

// OpenAIProvider — адаптер OpenAI. Клиент создаётся один раз при старте
// процесса из переменных окружения и переиспользуется всеми запросами.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey, endpoint string) *OpenAIProvider {
	p := &OpenAIProvider{}
	if apiKey != "" {
		p.client = newOpenAIClient(apiKey, endpoint)
	}
	return p
}

func newOpenAIClient(apiKey, endpoint string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	return openai.NewClientWithConfig(cfg)
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) IsConfigured(opts Options) bool {
	return p.client != nil || (opts.Provider == p.Name() && opts.APIKey != "")
}

func (p *OpenAIProvider) Generate(ctx context.Context, system string, turns []Turn, opts Options) (string, error) {
	client := p.client

	model := openaiDefaultModel
	if HasImages(turns) {
		model = openaiDefaultVisionModel
	}
	if opts.Provider == p.Name() {
		if opts.Model != "" {
			model = opts.Model
		}
		if opts.APIKey != "" {
			client = newOpenAIClient(opts.APIKey, opts.Endpoint)
		}
	}
	if client == nil {
		return "", errors.New("клиент OpenAI не инициализирован")
	}

	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	}}
	for _, turn := range turns {
		messages = append(messages, toOpenAIMessage(turn))
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("ошибка при запросе к OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("нет ответа от OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessage(turn Turn) openai.ChatCompletionMessage {
	if len(turn.Segments) == 0 {
		return openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
	}

	parts := make([]openai.ChatMessagePart, 0, len(turn.Segments))
	for _, seg := range turn.Segments {
		if seg.IsImage() {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", seg.ImageMIME, seg.ImageBase64),
				},
			})
		} else {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: seg.Text,
			})
		}
	}
	return openai.ChatCompletionMessage{
		Role:         string(turn.Role),
		MultiContent: parts,
	}
}
