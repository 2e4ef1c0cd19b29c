package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	PostgresHost       string
	PostgresPort       string
	PostgresUser       string
	PostgresPassword   string
	PostgresDB         string
	ServerHost         string
	ServerPort         string
	JWTSigningKey      string
	GeminiAPIKey       string
	GeminiEndpoint     string
	OpenAIAPIKey       string
	OpenAIEndpoint     string
	DeepSeekAPIKey     string
	DeepSeekEndpoint   string
	UploadDir          string
	DefaultTokenQuota  int64
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("Не найден файл .env")
	}

	return &Config{
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:       getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:         getEnv("POSTGRES_DB", "chatserver"),
		ServerHost:         getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		JWTSigningKey:      getEnv("JWT_SIGNING_KEY", "your-secret-signing-key"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiEndpoint:     getEnv("GEMINI_ENDPOINT", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIEndpoint:     getEnv("OPENAI_ENDPOINT", ""),
		DeepSeekAPIKey:     getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekEndpoint:   getEnv("DEEPSEEK_ENDPOINT", ""),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		DefaultTokenQuota:  getEnvInt64("DEFAULT_TOKEN_QUOTA", 100000),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		logrus.Warnf("Некорректное значение %s=%q, используется значение по умолчанию %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
