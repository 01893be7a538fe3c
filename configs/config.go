package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is built once at startup and handed to the components that need
// it; nothing in the codebase reads the environment after Load returns.
type AppConfig struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	GatewayBaseURL string
	GatewaySecret  string
	GatewayTimeout time.Duration

	PlatformFeeCents    int64
	Currency            string
	CancelLockHours     int
	PendingTimeoutHours int
	ConfirmOnPayment    bool

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	AdminEmail    string
	AdminPassword string
	AdminFullName string
}

func Load() *AppConfig {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return &AppConfig{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", "https://api.checkout.example.com"),
		GatewaySecret:  os.Getenv("GATEWAY_SECRET_KEY"),
		GatewayTimeout: time.Duration(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 10)) * time.Second,

		PlatformFeeCents:    int64(getEnvInt("PLATFORM_FEE_CENTS", 4900)),
		Currency:            getEnv("CURRENCY", "USD"),
		CancelLockHours:     getEnvInt("CANCEL_LOCK_HOURS", 2),
		PendingTimeoutHours: getEnvInt("PENDING_TIMEOUT_HOURS", 24),
		ConfirmOnPayment:    getEnvBool("CONFIRM_ON_PAYMENT", false),

		BrevoAPIKey:     os.Getenv("BREVO_API_KEY"),
		EmailSender:     os.Getenv("EMAIL_SENDER"),
		EmailSenderName: os.Getenv("EMAIL_SENDER_NAME"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminFullName: getEnv("ADMIN_FULL_NAME", "Platform Admin"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Warning: %s is not a number, using default %d", key, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
