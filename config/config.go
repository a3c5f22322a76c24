package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// AI Configuration
	AIAPIEndpoint string
	AIAPIKey      string

	// SMS Configuration
	SMSEndpoint   string
	SMSAPIKey     string
	SMSFromNumber string

	// Payment Configuration
	PaymentEndpoint string
	PaymentMerchant string
	CallbackURL     string

	// Admin Configuration
	AdminUsername string
	AdminPassword string
	JWTSecret     string

	// Server Configuration
	APIPort int

	// Database Configuration
	DatabasePath string

	// File Configuration
	MaxFileSizeMB      int
	MaxFilesPerMessage int
	UploadPath         string

	// Logging Configuration
	LogLevel string

	// System Configuration
	Timezone string
}

var AppConfig *Config

var location *time.Location

func LoadConfig() error {
	// Load .env file
	_ = godotenv.Load()

	AppConfig = &Config{
		AIAPIEndpoint:      getEnv("AI_API_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		AIAPIKey:           getEnv("AI_API_KEY", ""),
		SMSEndpoint:        getEnv("SMS_ENDPOINT", ""),
		SMSAPIKey:          getEnv("SMS_API_KEY", ""),
		SMSFromNumber:      getEnv("SMS_FROM_NUMBER", "3000"),
		PaymentEndpoint:    getEnv("PAYMENT_ENDPOINT", "https://gateway.zibal.ir/v1"),
		PaymentMerchant:    getEnv("PAYMENT_MERCHANT", ""),
		CallbackURL:        getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8080/api/payment/callback"),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-min-32-characters"),
		APIPort:            getEnvInt("API_PORT", 8080),
		DatabasePath:       getEnv("DATABASE_PATH", "./data/chatyar.db"),
		MaxFileSizeMB:      getEnvInt("MAX_FILE_SIZE_MB", 10),
		MaxFilesPerMessage: getEnvInt("MAX_FILES_PER_MESSAGE", 5),
		UploadPath:         getEnv("UPLOAD_PATH", "./data/uploads"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Timezone:           getEnv("TIMEZONE", "Asia/Tehran"),
	}

	if AppConfig.AIAPIKey == "" {
		return fmt.Errorf("AI_API_KEY is required in .env file")
	}

	loc, err := time.LoadLocation(AppConfig.Timezone)
	if err != nil {
		return fmt.Errorf("خطا در بارگذاری منطقه زمانی %s: %w", AppConfig.Timezone, err)
	}
	location = loc

	return nil
}

// Location منطقه زمانی سرور؛ مرز تمام بازه‌های مصرف با همین محاسبه می‌شود
func Location() *time.Location {
	if location == nil {
		return time.UTC
	}
	return location
}

// SetLocation تنظیم منطقه زمانی (برای تست)
func SetLocation(loc *time.Location) {
	location = loc
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	valStr := getEnv(key, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}
