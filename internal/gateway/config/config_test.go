package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wizard/internal/artifact"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "")
	t.Setenv("STORAGE_STRATEGY", "")
	t.Setenv("STORAGE_MAX_DB_BYTES", "")
	t.Setenv("STORAGE_COMPRESSION", "")
	t.Setenv("STORAGE_RETENTION_DAYS", "")
	t.Setenv("CLEANUP_INTERVAL", "")
	t.Setenv("DOWNLOAD_BASE_URL", "")

	cfg, err := FromEnv(":8081")
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Port)
	assert.Equal(t, "http://localhost:8081", cfg.DownloadBaseURL)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, artifact.StorageOptions{
		Strategy:           artifact.StrategyHybrid,
		MaxSizeForDB:       100 * 1024,
		CompressionEnabled: true,
		RetentionDays:      7,
	}, cfg.Storage)
	assert.False(t, cfg.Artifact.Enabled)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_STRATEGY", "Database")
	t.Setenv("STORAGE_COMPRESSION", "false")
	t.Setenv("STORAGE_RETENTION_DAYS", "0")
	t.Setenv("CLEANUP_INTERVAL", "15m")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "s3.example.com")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "ak")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "sk")
	t.Setenv("ARTIFACT_S3_USE_SSL", "")

	cfg, err := FromEnv(":8081")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, artifact.StrategyDatabase, cfg.Storage.Strategy)
	assert.False(t, cfg.Storage.CompressionEnabled)
	assert.Zero(t, cfg.Storage.RetentionDays)
	assert.Equal(t, 15*time.Minute, cfg.CleanupInterval)
	assert.True(t, cfg.Artifact.Enabled)
	assert.Equal(t, "ak", cfg.Artifact.AccessKey)
	assert.True(t, cfg.Artifact.UseSSL)
	assert.Equal(t, "wizard-files", cfg.Artifact.Bucket)
}

func TestFromEnvLocalUsesMinio(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("ARTIFACT_MINIO_ENDPOINT", "")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "")
	t.Setenv("MINIO_ROOT_USER", "")
	t.Setenv("MINIO_ROOT_PASSWORD", "")

	cfg, err := FromEnv(":8081")
	require.NoError(t, err)

	assert.Equal(t, "minio:9000", cfg.Artifact.Endpoint)
	assert.False(t, cfg.Artifact.UseSSL)
	assert.True(t, cfg.Artifact.Enabled)
	assert.Equal(t, "wizard", cfg.Artifact.AccessKey)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_STRATEGY", "cloud")
	_, err := FromEnv(":8081")
	assert.Error(t, err)

	t.Setenv("STORAGE_STRATEGY", "")
	t.Setenv("STORAGE_MAX_DB_BYTES", "lots")
	_, err = FromEnv(":8081")
	assert.Error(t, err)

	t.Setenv("STORAGE_MAX_DB_BYTES", "")
	t.Setenv("CLEANUP_INTERVAL", "hourly")
	_, err = FromEnv(":8081")
	assert.Error(t, err)
}
