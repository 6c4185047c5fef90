package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("API_URL", "/api/v1/")
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/api/v1", cfg.APIURL)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "public/uploads", cfg.UploadDir)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.Minio.Enabled())
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadLists(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestValidateMissingSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRootPrefix(t *testing.T) {
	setRequired(t)
	t.Setenv("API_URL", "/")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.APIURL)
}

func TestValidateMissingPrefix(t *testing.T) {
	setRequired(t)
	t.Setenv("API_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "API_URL is required")
}

func TestValidateRelativePrefix(t *testing.T) {
	cfg := &Config{APIURL: "api/v1", DatabaseURL: "memory://", JWTSecret: "x"}
	assert.ErrorContains(t, cfg.Validate(), "API_URL must start with /")
}

func TestValidateMinioCredentials(t *testing.T) {
	cfg := &Config{
		APIURL:      "/api/v1",
		DatabaseURL: "memory://",
		JWTSecret:   "x",
		Minio:       MinioConfig{Endpoint: "localhost:9000"},
	}
	assert.ErrorContains(t, cfg.Validate(), "MINIO_ACCESS_KEY")
}
