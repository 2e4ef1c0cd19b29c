package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MsgNoProviders возвращается, когда не настроен ни один провайдер.
	MsgNoProviders = "Ни один AI-провайдер не настроен. Обратитесь к администратору."
	// MsgAllFailed возвращается, когда все настроенные провайдеры отказали.
	MsgAllFailed = "Все AI-провайдеры сейчас недоступны. Попробуйте повторить запрос позже."
)

const (
	systemPrompt = "Ты полезный ассистент. Отвечай на языке пользователя, ясно и по существу."

	systemPromptVision = "Ты полезный ассистент с поддержкой анализа изображений. " +
		"Внимательно рассмотри прикреплённые изображения и отвечай на языке пользователя, ясно и по существу."

	attemptTimeout = 60 * time.Second
)

// Chain перебирает провайдеров в фиксированном порядке приоритета и
// останавливается на первом успешном ответе.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Generate никогда не возвращает ошибку: исчерпание цепочки — это тоже
// ответ (фиксированная строка-заглушка), который будет сохранён как
// сообщение ассистента.
func (c *Chain) Generate(ctx context.Context, turns []Turn, opts Options) Result {
	system := systemPrompt
	if HasImages(turns) {
		system = systemPromptVision
	}

	configured := 0
	for _, p := range c.providers {
		if !p.IsConfigured(opts) {
			logrus.Debugf("Провайдер %s не настроен, пропускаем", p.Name())
			continue
		}
		configured++

		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		text, err := p.Generate(attemptCtx, system, turns, opts)
		cancel()
		if err != nil {
			logrus.Errorf("Провайдер %s вернул ошибку: %v", p.Name(), err)
			continue
		}

		logrus.Infof("Ответ получен от провайдера %s", p.Name())
		return Result{Text: text, Provider: p.Name()}
	}

	if configured == 0 {
		logrus.Warn("Ни один AI-провайдер не настроен")
		return Result{Text: MsgNoProviders}
	}
	logrus.Error("Все настроенные AI-провайдеры недоступны")
	return Result{Text: MsgAllFailed}
}
