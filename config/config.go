package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	JWTSecret    string
	JWTExpiryMin int

	RedisHost     string
	RedisPort     string
	RedisPassword string

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string

	NotificationServiceURL string

	GlobalRateLimit    int
	MessageRateLimit   int
	SensitiveRateLimit int
	CallRateLimit      int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8084"),
		AppMode: getEnv("APP_MODE", "debug"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "amoura_chat"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
		JWTExpiryMin: getEnvAsInt("JWT_EXPIRY_MIN", 60),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		S3Region:     getEnv("S3_REGION", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PublicBase: getEnv("S3_PUBLIC_BASE", ""),

		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", ""),

		GlobalRateLimit:    getEnvAsInt("GLOBAL_RATE_LIMIT", 300),
		MessageRateLimit:   getEnvAsInt("MESSAGE_RATE_LIMIT", 60),
		SensitiveRateLimit: getEnvAsInt("SENSITIVE_RATE_LIMIT", 20),
		CallRateLimit:      getEnvAsInt("CALL_RATE_LIMIT", 10),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
