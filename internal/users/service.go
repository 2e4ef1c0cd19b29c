package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatserver/internal/auth"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound       = errors.New("пользователь не найден")
	ErrUserAlreadyExists  = errors.New("пользователь с таким email уже существует")
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	ErrUserDeactivated    = errors.New("учётная запись пользователя отключена")
	ErrInvalidResetToken  = errors.New("недействительный или просроченный токен сброса пароля")
	ErrInvalidVerifyToken = errors.New("недействительный или просроченный токен подтверждения email")
)

const (
	resetTokenTTL  = 1 * time.Hour
	verifyTokenTTL = 24 * time.Hour
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, email, name, password string, tokenQuota int64) (*User, error) {
	existingUser, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logrus.Errorf("Ошибка при проверке существующего пользователя '%s': %v", email, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при проверке пользователя")
	}
	if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		logrus.Errorf("Ошибка хеширования пароля для пользователя '%s': %v", email, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при хешировании пароля")
	}

	user, err := s.repo.CreateUser(ctx, email, name, &hashedPassword, tokenQuota)
	if err != nil {
		logrus.Errorf("Ошибка создания пользователя '%s' в репозитории: %v", email, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при создании пользователя")
	}
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logrus.Errorf("Ошибка при получении пользователя '%s' для аутентификации: %v", email, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при аутентификации")
	}
	if user == nil || user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPasswordHash(password, *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDeactivated
	}
	return user, nil
}

// AuthenticateGoogle находит пользователя по email из Google-профиля или
// создаёт нового без пароля (password_hash = NULL).
func (s *Service) AuthenticateGoogle(ctx context.Context, email, name string, tokenQuota int64) (*User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logrus.Errorf("Ошибка при поиске пользователя '%s' для входа через Google: %v", email, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при входе через Google")
	}
	if user != nil {
		if !user.IsActive {
			return nil, ErrUserDeactivated
		}
		return user, nil
	}

	user, err = s.repo.CreateUser(ctx, email, name, nil, tokenQuota)
	if err != nil {
		logrus.Errorf("Ошибка создания пользователя '%s' при входе через Google: %v", email, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера при создании пользователя")
	}

	// email подтверждён самим Google
	if err := s.repo.MarkEmailVerified(ctx, user.ID); err != nil {
		logrus.Errorf("Ошибка при подтверждении email пользователя %d: %v", user.ID, err)
	} else {
		user.EmailVerified = true
	}

	logrus.Infof("Создан пользователь %d через Google OAuth", user.ID)
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		logrus.Errorf("Ошибка при получении пользователя по ID %d: %v", id, err)
		return nil, fmt.Errorf("внутренняя ошибка сервера")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// RecordUsage оценивает потраченные токены по длинам текста запроса и ответа
// и атомарно прибавляет их к счётчику пользователя.
func (s *Service) RecordUsage(ctx context.Context, userID int64, userLen, aiLen int) error {
	tokens := EstimateTokens(userLen, aiLen)
	if err := s.repo.AddTokenUsage(ctx, userID, tokens); err != nil {
		return err
	}
	logrus.Debugf("Пользователю %d засчитано %d токенов", userID, tokens)
	return nil
}

func (s *Service) IssueResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logrus.Errorf("Ошибка при поиске пользователя '%s' для сброса пароля: %v", email, err)
		return "", fmt.Errorf("внутренняя ошибка сервера")
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	token := uuid.New().String()
	if err := s.repo.SetResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		logrus.Errorf("Ошибка при сохранении токена сброса пароля пользователя %d: %v", user.ID, err)
		return "", fmt.Errorf("внутренняя ошибка сервера")
	}
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.repo.GetUserByResetToken(ctx, token)
	if err != nil {
		logrus.Errorf("Ошибка при поиске пользователя по токену сброса: %v", err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	if user == nil || user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
		return ErrInvalidResetToken
	}

	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		logrus.Errorf("Ошибка хеширования нового пароля пользователя %d: %v", user.ID, err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		logrus.Errorf("Ошибка при обновлении пароля пользователя %d: %v", user.ID, err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	return nil
}

func (s *Service) IssueVerifyToken(ctx context.Context, userID int64) (string, error) {
	token := uuid.New().String()
	if err := s.repo.SetVerifyToken(ctx, userID, token, time.Now().Add(verifyTokenTTL)); err != nil {
		logrus.Errorf("Ошибка при сохранении токена подтверждения email пользователя %d: %v", userID, err)
		return "", fmt.Errorf("внутренняя ошибка сервера")
	}
	return token, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.repo.GetUserByVerifyToken(ctx, token)
	if err != nil {
		logrus.Errorf("Ошибка при поиске пользователя по токену подтверждения: %v", err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	if user == nil || user.VerifyTokenExpiresAt == nil || time.Now().After(*user.VerifyTokenExpiresAt) {
		return ErrInvalidVerifyToken
	}
	if err := s.repo.MarkEmailVerified(ctx, user.ID); err != nil {
		logrus.Errorf("Ошибка при подтверждении email пользователя %d: %v", user.ID, err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		logrus.Errorf("Ошибка при получении списка пользователей: %v", err)
		return nil, fmt.Errorf("внутренняя ошибка сервера")
	}
	return list, nil
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		logrus.Errorf("Ошибка при изменении статуса пользователя %d: %v", id, err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	logrus.Infof("Пользователь %d: is_active=%t", id, active)
	return nil
}

func (s *Service) SetTokenQuota(ctx context.Context, id int64, quota int64) error {
	if err := s.repo.SetTokenQuota(ctx, id, quota); err != nil {
		logrus.Errorf("Ошибка при изменении квоты пользователя %d: %v", id, err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	logrus.Infof("Пользователь %d: token_quota=%d", id, quota)
	return nil
}

func (s *Service) ResetTokenUsage(ctx context.Context, id int64) error {
	if err := s.repo.ResetTokenUsage(ctx, id); err != nil {
		logrus.Errorf("Ошибка при сбросе счётчика токенов пользователя %d: %v", id, err)
		return fmt.Errorf("внутренняя ошибка сервера")
	}
	logrus.Infof("Пользователь %d: счётчик токенов сброшен", id)
	return nil
}
