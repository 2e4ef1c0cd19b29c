package adminconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var ErrUnknownProvider = errors.New("неизвестный провайдер")

var knownProviders = map[string]bool{
	"gemini":   true,
	"openai":   true,
	"deepseek": true,
}

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetActive(ctx context.Context) (*AdminConfig, error) {
	cfg, err := s.repo.GetActive(ctx)
	if err != nil {
		logrus.Errorf("Ошибка при получении активной конфигурации: %v", err)
		return nil, fmt.Errorf("внутренняя ошибка сервера")
	}
	return cfg, nil
}

func (s *Service) UpdateActive(ctx context.Context, provider, apiKey, endpoint, model string, defaultTokenQuota int64) (*AdminConfig, error) {
	if !knownProviders[provider] {
		return nil, ErrUnknownProvider
	}
	cfg, err := s.repo.ReplaceActive(ctx, provider, apiKey, endpoint, model, defaultTokenQuota)
	if err != nil {
		logrus.Errorf("Ошибка при обновлении активной конфигурации: %v", err)
		return nil, fmt.Errorf("внутренняя ошибка сервера")
	}
	logrus.Infof("Активная конфигурация обновлена: провайдер %s, модель %q", cfg.Provider, cfg.Model)
	return cfg, nil
}

// DefaultTokenQuota возвращает квоту для новых пользователей из активной
// конфигурации, либо fallback, если конфигурации нет.
func (s *Service) DefaultTokenQuota(ctx context.Context, fallback int64) int64 {
	cfg, err := s.repo.GetActive(ctx)
	if err != nil {
		logrus.Errorf("Ошибка при получении активной конфигурации: %v", err)
		return fallback
	}
	if cfg == nil || cfg.DefaultTokenQuota <= 0 {
		return fallback
	}
	return cfg.DefaultTokenQuota
}
