package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	geminiDefaultEndpoint = "https://generativelanguage.googleapis.com"
	geminiDefaultModel    = "gemini-1.5-flash"
)

// GeminiProvider ходит в Google Generative Language API напрямую:
// generateContent, изображения — через inlineData-части.
type GeminiProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewGeminiProvider(apiKey, endpoint string) *GeminiProvider {
	if endpoint == "" {
		endpoint = geminiDefaultEndpoint
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) IsConfigured(opts Options) bool {
	return p.apiKey != "" || (opts.Provider == p.Name() && opts.APIKey != "")
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *GeminiProvider) Generate(ctx context.Context, system string, turns []Turn, opts Options) (string, error) {
	apiKey := p.apiKey
	endpoint := p.endpoint
	model := geminiDefaultModel
	if opts.Provider == p.Name() {
		if opts.APIKey != "" {
			apiKey = opts.APIKey
		}
		if opts.Endpoint != "" {
			endpoint = opts.Endpoint
		}
		if opts.Model != "" {
			model = opts.Model
		}
	}
	if apiKey == "" {
		return "", errors.New("API-ключ Gemini не задан")
	}

	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	for _, turn := range turns {
		req.Contents = append(req.Contents, toGeminiContent(turn))
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации запроса к Gemini: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(endpoint, "/"), model, apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса к Gemini: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ошибка при запросе к Gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа Gemini: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("ошибка разбора ответа Gemini (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("Gemini вернул ошибку %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("Gemini вернул HTTP %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 {
		return "", errors.New("нет ответа от Gemini")
	}

	var b strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := b.String()
	if text == "" {
		return "", errors.New("пустой ответ от Gemini")
	}

	logrus.Debugf("Gemini: получен ответ длиной %d символов", len(text))
	return text, nil
}

// toGeminiContent переводит реплику в формат Gemini: роль assistant
// становится model, изображения — inlineData.
func toGeminiContent(turn Turn) geminiContent {
	role := "user"
	if turn.Role == RoleAssistant {
		role = "model"
	}

	if len(turn.Segments) == 0 {
		return geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Content}}}
	}

	parts := make([]geminiPart, 0, len(turn.Segments))
	for _, seg := range turn.Segments {
		if seg.IsImage() {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: seg.ImageMIME,
				Data:     seg.ImageBase64,
			}})
		} else {
			parts = append(parts, geminiPart{Text: seg.Text})
		}
	}
	return geminiContent{Role: role, Parts: parts}
}
