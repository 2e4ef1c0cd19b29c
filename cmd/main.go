package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatserver/internal/adminconfig"
	"chatserver/internal/api"
	"chatserver/internal/attachments"
	"chatserver/internal/auth"
	"chatserver/internal/chat"
	"chatserver/internal/conversations"
	"chatserver/internal/llm"
	"chatserver/internal/middleware"
	"chatserver/internal/users"
	"chatserver/pkg/config"
	"chatserver/pkg/db"

	"github.com/sirupsen/logrus"
)

func main() {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	cfg := config.LoadConfig()

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		logrus.Fatalf("Ошибка при подключении к базе данных: %v", err)
	}
	defer database.Close()

	userRepo := users.NewRepository(database)
	userService := users.NewService(userRepo)

	conversationRepo := conversations.NewRepository(database)
	conversationService := conversations.NewService(conversationRepo)

	adminConfigRepo := adminconfig.NewRepository(database)
	adminConfigService := adminconfig.NewService(adminConfigRepo)

	store, err := attachments.NewStore(cfg.UploadDir)
	if err != nil {
		logrus.Fatalf("Ошибка при создании каталога загрузок: %v", err)
	}

	chain := llm.NewChain(
		llm.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiEndpoint),
		llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEndpoint),
		llm.NewDeepSeekProvider(cfg.DeepSeekAPIKey, cfg.DeepSeekEndpoint),
	)

	chatService := chat.NewService(conversationService, userService, adminConfigService, chain, store)

	googleAuth := users.NewGoogleAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if googleAuth == nil {
		logrus.Warn("Google OAuth не настроен, вход через Google отключён")
	}

	apiHandler := api.NewHandler(
		userService,
		conversationService,
		chatService,
		adminConfigService,
		googleAuth,
		cfg.JWTSigningKey,
		cfg.DefaultTokenQuota,
	)

	mux := http.NewServeMux()

	mux.Handle("/api/auth/register", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.RegisterHandler)))
	mux.Handle("/api/auth/login", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.LoginHandler)))
	mux.Handle("/api/auth/google/url", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.GoogleAuthURLHandler)))
	mux.Handle("/api/auth/google/callback", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.GoogleCallbackHandler)))
	mux.Handle("/api/auth/password-reset/request", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.PasswordResetRequestHandler)))
	mux.Handle("/api/auth/password-reset/confirm", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.PasswordResetConfirmHandler)))
	mux.Handle("/api/auth/verify-email", middleware.CORSMiddleware(http.HandlerFunc(apiHandler.VerifyEmailHandler)))

	meHandler := http.HandlerFunc(apiHandler.MeHandler)
	mux.Handle("/api/users/me", middleware.CORSMiddleware(auth.JWTMiddleware(meHandler, cfg.JWTSigningKey)))

	conversationsHandler := http.HandlerFunc(apiHandler.ConversationsHandler)
	mux.Handle("/api/conversations", middleware.CORSMiddleware(auth.JWTMiddleware(conversationsHandler, cfg.JWTSigningKey)))

	deleteConversationHandler := http.HandlerFunc(apiHandler.DeleteConversationHandler)
	mux.Handle("/api/conversations/delete", middleware.CORSMiddleware(auth.JWTMiddleware(deleteConversationHandler, cfg.JWTSigningKey)))

	messagesHandler := http.HandlerFunc(apiHandler.MessagesHandler)
	mux.Handle("/api/conversations/messages", middleware.CORSMiddleware(auth.JWTMiddleware(messagesHandler, cfg.JWTSigningKey)))

	sendMessageHandler := http.HandlerFunc(apiHandler.SendMessageHandler)
	mux.Handle("/api/conversations/send", middleware.CORSMiddleware(auth.JWTMiddleware(sendMessageHandler, cfg.JWTSigningKey)))

	adminConfigHandler := http.HandlerFunc(apiHandler.AdminConfigHandler)
	mux.Handle("/api/admin/config", middleware.CORSMiddleware(auth.JWTMiddleware(auth.AdminMiddleware(adminConfigHandler), cfg.JWTSigningKey)))

	updateAdminConfigHandler := http.HandlerFunc(apiHandler.UpdateAdminConfigHandler)
	mux.Handle("/api/admin/config/update", middleware.CORSMiddleware(auth.JWTMiddleware(auth.AdminMiddleware(updateAdminConfigHandler), cfg.JWTSigningKey)))

	adminUsersHandler := http.HandlerFunc(apiHandler.AdminUsersHandler)
	mux.Handle("/api/admin/users", middleware.CORSMiddleware(auth.JWTMiddleware(auth.AdminMiddleware(adminUsersHandler), cfg.JWTSigningKey)))

	adminToggleUserHandler := http.HandlerFunc(apiHandler.AdminToggleUserHandler)
	mux.Handle("/api/admin/users/toggle", middleware.CORSMiddleware(auth.JWTMiddleware(auth.AdminMiddleware(adminToggleUserHandler), cfg.JWTSigningKey)))

	adminSetQuotaHandler := http.HandlerFunc(apiHandler.AdminSetQuotaHandler)
	mux.Handle("/api/admin/users/quota", middleware.CORSMiddleware(auth.JWTMiddleware(auth.AdminMiddleware(adminSetQuotaHandler), cfg.JWTSigningKey)))

	adminResetUsageHandler := http.HandlerFunc(apiHandler.AdminResetUsageHandler)
	mux.Handle("/api/admin/users/reset-usage", middleware.CORSMiddleware(auth.JWTMiddleware(auth.AdminMiddleware(adminResetUsageHandler), cfg.JWTSigningKey)))

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: mux,
	}

	go func() {
		logrus.Infof("Сервер запущен на порту %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Ошибка при запуске сервера: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Завершение работы сервера...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Ошибка при остановке сервера: %v", err)
	}

	logrus.Info("Сервер остановлен")
}
