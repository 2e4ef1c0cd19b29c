package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	deepseekDefaultEndpoint = "https://api.deepseek.com/v1"
	deepseekDefaultModel    = "deepseek-chat"
)

// DeepSeekProvider ходит в OpenAI-совместимый эндпоинт DeepSeek тем же
// клиентом. Vision-моделей у DeepSeek нет: изображения сводятся к текстовым
// маркерам через FlattenText.
type DeepSeekProvider struct {
	client *openai.Client
}

func NewDeepSeekProvider(apiKey, endpoint string) *DeepSeekProvider {
	p := &DeepSeekProvider{}
	if apiKey != "" {
		if endpoint == "" {
			endpoint = deepseekDefaultEndpoint
		}
		p.client = newOpenAIClient(apiKey, endpoint)
	}
	return p
}

func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

func (p *DeepSeekProvider) IsConfigured(opts Options) bool {
	return p.client != nil || (opts.Provider == p.Name() && opts.APIKey != "")
}

func (p *DeepSeekProvider) Generate(ctx context.Context, system string, turns []Turn, opts Options) (string, error) {
	client := p.client

	model := deepseekDefaultModel
	if opts.Provider == p.Name() {
		if opts.Model != "" {
			model = opts.Model
		}
		if opts.APIKey != "" {
			endpoint := opts.Endpoint
			if endpoint == "" {
				endpoint = deepseekDefaultEndpoint
			}
			client = newOpenAIClient(opts.APIKey, endpoint)
		}
	}
	if client == nil {
		return "", errors.New("клиент DeepSeek не инициализирован")
	}

	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	}}
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.FlattenText(),
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("ошибка при запросе к DeepSeek: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("нет ответа от DeepSeek")
	}
	return resp.Choices[0].Message.Content, nil
}
