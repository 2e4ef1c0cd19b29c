package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeProvider struct {
	name       string
	configured bool
	text       string
	err        error
	calls      int
	lastSystem string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) IsConfigured(_ Options) bool { return f.configured }

func (f *fakeProvider) Generate(_ context.Context, system string, _ []Turn, _ Options) (string, error) {
	f.calls++
	f.lastSystem = system
	return f.text, f.err
}

func TestChainFirstConfiguredProviderWins(t *testing.T) {
	first := &fakeProvider{name: "gemini", configured: true, text: "ответ gemini"}
	second := &fakeProvider{name: "openai", configured: true, text: "ответ openai"}
	chain := NewChain(first, second)

	result := chain.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "привет"}}, Options{})

	assert.Equal(t, "ответ gemini", result.Text)
	assert.Equal(t, "gemini", result.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestChainSkipsUnconfiguredProviders(t *testing.T) {
	first := &fakeProvider{name: "gemini", configured: false}
	second := &fakeProvider{name: "openai", configured: true, text: "ответ openai"}
	chain := NewChain(first, second)

	result := chain.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "привет"}}, Options{})

	assert.Equal(t, "ответ openai", result.Text)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, 0, first.calls)
}

func TestChainAdvancesOnFailure(t *testing.T) {
	first := &fakeProvider{name: "gemini", configured: true, err: errors.New("HTTP 500")}
	second := &fakeProvider{name: "openai", configured: true, text: "ответ openai"}
	third := &fakeProvider{name: "deepseek", configured: true, text: "ответ deepseek"}
	chain := NewChain(first, second, third)

	result := chain.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "привет"}}, Options{})

	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)
}

func TestChainAllProvidersFailed(t *testing.T) {
	first := &fakeProvider{name: "gemini", configured: true, err: errors.New("таймаут")}
	second := &fakeProvider{name: "openai", configured: true, err: errors.New("HTTP 429")}
	chain := NewChain(first, second)

	result := chain.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "привет"}}, Options{})

	assert.Equal(t, MsgAllFailed, result.Text)
	assert.Empty(t, result.Provider)
}

func TestChainNoProvidersConfigured(t *testing.T) {
	chain := NewChain(
		&fakeProvider{name: "gemini"},
		&fakeProvider{name: "openai"},
		&fakeProvider{name: "deepseek"},
	)

	result := chain.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "привет"}}, Options{})

	assert.Equal(t, MsgNoProviders, result.Text)
	assert.Empty(t, result.Provider)
}

func TestChainSelectsVisionSystemPrompt(t *testing.T) {
	provider := &fakeProvider{name: "gemini", configured: true, text: "ок"}
	chain := NewChain(provider)

	turns := []Turn{{
		Role: RoleUser,
		Segments: []Segment{
			TextSegment("что на картинке?"),
			ImageSegment("image/png", "aGVsbG8="),
		},
	}}
	chain.Generate(context.Background(), turns, Options{})
	assert.Equal(t, systemPromptVision, provider.lastSystem)

	chain.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "привет"}}, Options{})
	assert.Equal(t, systemPrompt, provider.lastSystem)
}

func TestFlattenTextReplacesImages(t *testing.T) {
	turn := Turn{
		Role: RoleUser,
		Segments: []Segment{
			TextSegment("посмотри"),
			ImageSegment("image/png", "aGVsbG8="),
		},
	}
	assert.Equal(t, "посмотри\n[изображение]", turn.FlattenText())
}
