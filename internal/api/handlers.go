package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chatserver/internal/adminconfig"
	"chatserver/internal/auth"
	"chatserver/internal/chat"
	"chatserver/internal/conversations"
	"chatserver/internal/users"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	tokenTTL          = 72 * time.Hour
	maxMultipartBytes = 64 << 20
)

type Handler struct {
	userService         *users.Service
	conversationService *conversations.Service
	chatService         *chat.Service
	adminConfigService  *adminconfig.Service
	googleAuth          *users.GoogleAuth
	jwtSigningKey       string
	fallbackTokenQuota  int64
}

func NewHandler(
	userService *users.Service,
	conversationService *conversations.Service,
	chatService *chat.Service,
	adminConfigService *adminconfig.Service,
	googleAuth *users.GoogleAuth,
	jwtSigningKey string,
	fallbackTokenQuota int64,
) *Handler {
	return &Handler{
		userService:         userService,
		conversationService: conversationService,
		chatService:         chatService,
		adminConfigService:  adminConfigService,
		googleAuth:          googleAuth,
		jwtSigningKey:       jwtSigningKey,
		fallbackTokenQuota:  fallbackTokenQuota,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email и пароль обязательны", http.StatusBadRequest)
		return
	}

	quota := h.adminConfigService.DefaultTokenQuota(r.Context(), h.fallbackTokenQuota)
	user, err := h.userService.Register(r.Context(), req.Email, req.Name, req.Password, quota)
	if err != nil {
		if errors.Is(err, users.ErrUserAlreadyExists) {
			http.Error(w, "Пользователь с таким email уже существует", http.StatusConflict)
		} else {
			logrus.Errorf("Ошибка регистрации пользователя '%s': %v", req.Email, err)
			http.Error(w, "Ошибка при регистрации пользователя", http.StatusInternalServerError)
		}
		return
	}

	if _, err := h.userService.IssueVerifyToken(r.Context(), user.ID); err != nil {
		logrus.Errorf("Не удалось выпустить токен подтверждения email для пользователя %d: %v", user.ID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidCredentials):
			http.Error(w, "Неверный email или пароль", http.StatusUnauthorized)
		case errors.Is(err, users.ErrUserDeactivated):
			http.Error(w, "Учётная запись отключена", http.StatusForbidden)
		default:
			logrus.Errorf("Ошибка аутентификации пользователя '%s': %v", req.Email, err)
			http.Error(w, "Ошибка при аутентификации", http.StatusInternalServerError)
		}
		return
	}

	h.writeLoginResponse(w, user)
}

func (h *Handler) writeLoginResponse(w http.ResponseWriter, user *users.User) {
	token, err := auth.GenerateJWTToken(user.ID, user.IsAdmin, h.jwtSigningKey, tokenTTL)
	if err != nil {
		logrus.Errorf("Ошибка генерации JWT для пользователя %d: %v", user.ID, err)
		http.Error(w, "Ошибка при создании токена", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token, User: user})
}

func (h *Handler) GoogleAuthURLHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}
	if h.googleAuth == nil {
		http.Error(w, "Вход через Google не настроен", http.StatusNotImplemented)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"url": h.googleAuth.AuthURL(uuid.New().String()),
	})
}

func (h *Handler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}
	if h.googleAuth == nil {
		http.Error(w, "Вход через Google не настроен", http.StatusNotImplemented)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Отсутствует код авторизации", http.StatusBadRequest)
		return
	}

	profile, err := h.googleAuth.ExchangeCode(r.Context(), code)
	if err != nil {
		logrus.Errorf("Ошибка обмена кода Google OAuth: %v", err)
		http.Error(w, "Не удалось выполнить вход через Google", http.StatusUnauthorized)
		return
	}

	quota := h.adminConfigService.DefaultTokenQuota(r.Context(), h.fallbackTokenQuota)
	user, err := h.userService.AuthenticateGoogle(r.Context(), profile.Email, profile.Name, quota)
	if err != nil {
		if errors.Is(err, users.ErrUserDeactivated) {
			http.Error(w, "Учётная запись отключена", http.StatusForbidden)
			return
		}
		logrus.Errorf("Ошибка входа через Google для '%s': %v", profile.Email, err)
		http.Error(w, "Не удалось выполнить вход через Google", http.StatusInternalServerError)
		return
	}

	h.writeLoginResponse(w, user)
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) PasswordResetRequestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	// Ответ одинаковый вне зависимости от существования пользователя,
	// чтобы не раскрывать список адресов.
	if _, err := h.userService.IssueResetToken(r.Context(), req.Email); err != nil && !errors.Is(err, users.ErrUserNotFound) {
		logrus.Errorf("Ошибка выпуска токена сброса пароля для '%s': %v", req.Email, err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Если пользователь существует, токен сброса пароля выпущен",
	})
}

func (h *Handler) PasswordResetConfirmHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, users.ErrInvalidResetToken) {
			http.Error(w, "Недействительный или просроченный токен", http.StatusBadRequest)
			return
		}
		logrus.Errorf("Ошибка сброса пароля: %v", err)
		http.Error(w, "Ошибка при сбросе пароля", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Пароль обновлён"})
}

func (h *Handler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Отсутствует токен подтверждения", http.StatusBadRequest)
		return
	}

	if err := h.userService.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, users.ErrInvalidVerifyToken) {
			http.Error(w, "Недействительный или просроченный токен", http.StatusBadRequest)
			return
		}
		logrus.Errorf("Ошибка подтверждения email: %v", err)
		http.Error(w, "Ошибка при подтверждении email", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Email подтверждён"})
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Не удалось определить пользователя", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "Пользователь не найден", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

type ConversationIDRequest struct {
	ID int64 `json:"id"`
}

func (h *Handler) ConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Не удалось определить пользователя", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.conversationService.List(r.Context(), userID)
		if err != nil {
			http.Error(w, "Ошибка при получении диалогов", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)

	case http.MethodPost:
		var req CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
			return
		}
		conv, err := h.conversationService.Create(r.Context(), userID, req.Title)
		if err != nil {
			http.Error(w, "Ошибка при создании диалога", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(conv)

	default:
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Не удалось определить пользователя", http.StatusUnauthorized)
		return
	}

	var req ConversationIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == 0 {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	if err := h.conversationService.Delete(r.Context(), userID, req.ID); err != nil {
		h.writeConversationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Диалог удалён"})
}

func (h *Handler) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Не удалось определить пользователя", http.StatusUnauthorized)
		return
	}

	conversationID, err := strconv.ParseInt(r.URL.Query().Get("conversation_id"), 10, 64)
	if err != nil {
		http.Error(w, "Некорректный conversation_id", http.StatusBadRequest)
		return
	}

	messages, err := h.conversationService.Messages(r.Context(), userID, conversationID)
	if err != nil {
		h.writeConversationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// PastedImage — картинка из буфера обмена: base64 с необязательным
// data-URL префиксом.
type PastedImage struct {
	Filename string `json:"filename"`
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

// SendMessageHandler принимает multipart-форму: текстовое поле message,
// conversation_id, файлы в частях files и JSON-массив pasted_images.
func (h *Handler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Не удалось определить пользователя", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		http.Error(w, "Некорректная multipart-форма", http.StatusBadRequest)
		return
	}

	conversationID, err := strconv.ParseInt(r.FormValue("conversation_id"), 10, 64)
	if err != nil {
		http.Error(w, "Некорректный conversation_id", http.StatusBadRequest)
		return
	}
	text := r.FormValue("message")

	var files []chat.FileInput
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			part, err := header.Open()
			if err != nil {
				logrus.Errorf("Не удалось открыть вложение %q: %v", header.Filename, err)
				continue
			}
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				logrus.Errorf("Не удалось прочитать вложение %q: %v", header.Filename, err)
				continue
			}

			mimetype := header.Header.Get("Content-Type")
			if mimetype == "" {
				mimetype = mime.TypeByExtension(filepath.Ext(header.Filename))
			}
			files = append(files, chat.FileInput{
				Filename: header.Filename,
				MimeType: mimetype,
				Data:     data,
			})
		}
	}

	if raw := r.FormValue("pasted_images"); raw != "" {
		var pasted []PastedImage
		if err := json.Unmarshal([]byte(raw), &pasted); err != nil {
			http.Error(w, "Некорректное поле pasted_images", http.StatusBadRequest)
			return
		}
		for _, img := range pasted {
			encoded := img.Base64
			if idx := strings.Index(encoded, "base64,"); idx >= 0 {
				encoded = encoded[idx+len("base64,"):]
			}
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				logrus.Warnf("Не удалось декодировать вставленное изображение %q: %v", img.Filename, err)
				continue
			}
			filename := img.Filename
			if filename == "" {
				filename = "pasted-" + uuid.New().String() + ".png"
			}
			files = append(files, chat.FileInput{
				Filename: filename,
				MimeType: img.MimeType,
				Data:     data,
			})
		}
	}

	result, err := h.chatService.SendMessage(r.Context(), userID, conversationID, text, files)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrQuotaExceeded):
			http.Error(w, "Квота токенов исчерпана", http.StatusForbidden)
		case errors.Is(err, conversations.ErrConversationNotFound):
			http.Error(w, "Диалог не найден", http.StatusNotFound)
		case errors.Is(err, conversations.ErrAccessDenied):
			http.Error(w, "Доступ к диалогу запрещён", http.StatusForbidden)
		case errors.Is(err, users.ErrUserNotFound):
			http.Error(w, "Пользователь не найден", http.StatusNotFound)
		default:
			logrus.Errorf("Ошибка при отправке сообщения пользователя %d: %v", userID, err)
			http.Error(w, "Ошибка при обработке сообщения", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *Handler) writeConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversations.ErrConversationNotFound):
		http.Error(w, "Диалог не найден", http.StatusNotFound)
	case errors.Is(err, conversations.ErrAccessDenied):
		http.Error(w, "Доступ к диалогу запрещён", http.StatusForbidden)
	default:
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}

type AdminConfigResponse struct {
	Provider          string `json:"provider"`
	APIKeyMasked      string `json:"api_key_masked"`
	Endpoint          string `json:"endpoint"`
	Model             string `json:"model"`
	DefaultTokenQuota int64  `json:"default_token_quota"`
}

type UpdateAdminConfigRequest struct {
	Provider          string `json:"provider"`
	APIKey            string `json:"api_key"`
	Endpoint          string `json:"endpoint"`
	Model             string `json:"model"`
	DefaultTokenQuota int64  `json:"default_token_quota"`
}

func (h *Handler) AdminConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := h.adminConfigService.GetActive(r.Context())
	if err != nil {
		http.Error(w, "Ошибка при получении конфигурации", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if cfg == nil {
		json.NewEncoder(w).Encode(nil)
		return
	}
	json.NewEncoder(w).Encode(AdminConfigResponse{
		Provider:          cfg.Provider,
		APIKeyMasked:      cfg.MaskedAPIKey(),
		Endpoint:          cfg.Endpoint,
		Model:             cfg.Model,
		DefaultTokenQuota: cfg.DefaultTokenQuota,
	})
}

func (h *Handler) UpdateAdminConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req UpdateAdminConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	cfg, err := h.adminConfigService.UpdateActive(r.Context(), req.Provider, req.APIKey, req.Endpoint, req.Model, req.DefaultTokenQuota)
	if err != nil {
		if errors.Is(err, adminconfig.ErrUnknownProvider) {
			http.Error(w, fmt.Sprintf("Неизвестный провайдер %q", req.Provider), http.StatusBadRequest)
			return
		}
		http.Error(w, "Ошибка при обновлении конфигурации", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AdminConfigResponse{
		Provider:          cfg.Provider,
		APIKeyMasked:      cfg.MaskedAPIKey(),
		Endpoint:          cfg.Endpoint,
		Model:             cfg.Model,
		DefaultTokenQuota: cfg.DefaultTokenQuota,
	})
}

func (h *Handler) AdminUsersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	list, err := h.userService.ListUsers(r.Context())
	if err != nil {
		http.Error(w, "Ошибка при получении списка пользователей", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

type AdminUserRequest struct {
	UserID     int64 `json:"user_id"`
	IsActive   *bool `json:"is_active,omitempty"`
	TokenQuota int64 `json:"token_quota,omitempty"`
}

func (h *Handler) AdminToggleUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req AdminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 || req.IsActive == nil {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	if err := h.userService.SetActive(r.Context(), req.UserID, *req.IsActive); err != nil {
		http.Error(w, "Ошибка при изменении статуса пользователя", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Статус пользователя обновлён"})
}

func (h *Handler) AdminSetQuotaHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req AdminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 || req.TokenQuota <= 0 {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	if err := h.userService.SetTokenQuota(r.Context(), req.UserID, req.TokenQuota); err != nil {
		http.Error(w, "Ошибка при изменении квоты пользователя", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Квота пользователя обновлена"})
}

func (h *Handler) AdminResetUsageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не разрешен", http.StatusMethodNotAllowed)
		return
	}

	var req AdminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		http.Error(w, "Некорректное тело запроса", http.StatusBadRequest)
		return
	}

	if err := h.userService.ResetTokenUsage(r.Context(), req.UserID); err != nil {
		http.Error(w, "Ошибка при сбросе счётчика токенов", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Счётчик токенов сброшен"})
}
