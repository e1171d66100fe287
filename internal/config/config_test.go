package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "clinic-sim", cfg.BucketName)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GeminiModelID)
	assert.Equal(t, []string{"gemini-3-pro-image-preview", "gemini-2.5-flash-image"}, cfg.GeminiImageModels)
	assert.Equal(t, "General Hepatology Clinic", cfg.ClinicName)
	assert.Equal(t, 5*time.Second, cfg.BridgePollInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CLINIC_SIM_BUCKET", "clinic-sim-staging")
	t.Setenv("GENERATE_TIMEOUT", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "clinic-sim-staging", cfg.BucketName)
	assert.Equal(t, 90*time.Second, cfg.GenerateTimeout)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORSOrigins)
}

func TestGetEnvAsDurationInvalid(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "not-a-duration")
	cfg := Load()
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
}
