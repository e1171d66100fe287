package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	CORSOrigins   []string
	AdminJWTSecret string

	// Object store
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BucketName          string
	StoreTimeout        time.Duration

	// Gemini
	GeminiAPIKey     string
	GeminiModelID    string
	GeminiImageModels []string
	GenerateTimeout  time.Duration

	// Optional history cache
	RedisAddr     string
	RedisPassword string

	// Clinic identity injected into prompts and the reset greeting
	ClinicName string
	AdminName  string

	// Email bridge
	IMAPHost          string
	IMAPUser          string
	IMAPPassword      string
	BridgeSubject     string
	BridgePollInterval time.Duration
	EmailProvider     string
	EmailFromAddress  string
	EmailFromName     string
	SendGridAPIKey    string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BucketName:          getEnv("CLINIC_SIM_BUCKET", "clinic-sim"),
		StoreTimeout:        getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash-lite"),
		GeminiImageModels: splitCSV(getEnv("GEMINI_IMAGE_MODELS", "gemini-3-pro-image-preview,gemini-2.5-flash-image")),
		GenerateTimeout:   getEnvAsDuration("GENERATE_TIMEOUT", 60*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ClinicName: getEnv("CLINIC_NAME", "General Hepatology Clinic"),
		AdminName:  getEnv("CLINIC_ADMIN_NAME", "Linda"),

		IMAPHost:           getEnv("IMAP_HOST", "imap.gmail.com:993"),
		IMAPUser:           getEnv("IMAP_USER", ""),
		IMAPPassword:       getEnv("IMAP_PASSWORD", ""),
		BridgeSubject:      getEnv("BRIDGE_SUBJECT", "MedForce Clinic"),
		BridgePollInterval: getEnvAsDuration("BRIDGE_POLL_INTERVAL", 5*time.Second),
		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "ses"))),
		EmailFromAddress:   getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "MedForce Clinic"),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
