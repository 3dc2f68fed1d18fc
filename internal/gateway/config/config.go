package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wizard/internal/artifact"
)

type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	DownloadBaseURL string
	LLMProvider     string
	CleanupInterval time.Duration
	Storage         artifact.StorageOptions
	Artifact        ArtifactConfig
	BlobDiskRoot    string
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()
	return FromEnv(*port)
}

// FromEnv builds the config from the process environment. defaultPort is used
// when PORT is unset.
func FromEnv(defaultPort string) (*Config, error) {
	port := defaultPort
	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			port = envPort
		} else {
			port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	storage, err := loadStorageOptions()
	if err != nil {
		return nil, err
	}
	interval, err := durationEnv("CLEANUP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            port,
		Env:             env,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DownloadBaseURL: firstNonEmpty(strings.TrimSpace(os.Getenv("DOWNLOAD_BASE_URL")), "http://localhost"+port),
		LLMProvider:     firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROVIDER")), "unknown"),
		CleanupInterval: interval,
		Storage:         storage,
		Artifact:        loadArtifactConfig(env),
		BlobDiskRoot:    strings.TrimSpace(os.Getenv("BLOB_DISK_ROOT")),
	}
	if isLocal(env) {
		applyLocalDefaults(cfg)
	}
	return cfg, nil
}

func loadStorageOptions() (artifact.StorageOptions, error) {
	strategy := artifact.StorageStrategy(strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_STRATEGY")), string(artifact.StrategyHybrid))))
	maxDB, err := intEnv("STORAGE_MAX_DB_BYTES", 100*1024)
	if err != nil {
		return artifact.StorageOptions{}, err
	}
	retention, err := intEnv("STORAGE_RETENTION_DAYS", 7)
	if err != nil {
		return artifact.StorageOptions{}, err
	}
	opts := artifact.StorageOptions{
		Strategy:           strategy,
		MaxSizeForDB:       int64(maxDB),
		CompressionEnabled: boolEnv("STORAGE_COMPRESSION", true),
		RetentionDays:      retention,
	}
	if err := opts.Validate(); err != nil {
		return artifact.StorageOptions{}, fmt.Errorf("storage config: %w", err)
	}
	return opts, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   isLocal(env) || endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "wizard-files"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

func resolveArtifactEndpoint(env string) string {
	if isLocal(env) {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if isLocal(env) {
		return false
	}
	return boolEnv("ARTIFACT_S3_USE_SSL", true)
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
