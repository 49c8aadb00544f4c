package config

import (
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, "PORT", "SERVER_PORT", "SCRATCH_DIR", "UPLOAD_BUCKET", "OUTPUT_BUCKET",
		"STORAGE_BACKEND", "DOCX_ENGINE", "CONVERSION_TIMEOUT", "MAX_FILE_SIZE",
		"REDIS_ADDR", "REDIS_PREFIX", "DATABASE_URL", "DB_HOST", "CORS_ALLOWED_ORIGINS",
		"S3_REGION", "AWS_DEFAULT_REGION")

	cfg := Load()

	if cfg.ServerPort != "5000" {
		t.Fatalf("expected default port 5000, got %s", cfg.ServerPort)
	}
	if cfg.UploadBucket != "doc-input-conversion" || cfg.OutputBucket != "doc-output-conversion" {
		t.Fatalf("unexpected default buckets: %s, %s", cfg.UploadBucket, cfg.OutputBucket)
	}
	if cfg.StorageBackend != StorageBackendS3 {
		t.Fatalf("expected s3 backend, got %s", cfg.StorageBackend)
	}
	if cfg.DocxEngine != DocxEngineSoffice {
		t.Fatalf("expected soffice engine, got %s", cfg.DocxEngine)
	}
	if cfg.ConversionTimeout != 120 {
		t.Fatalf("expected timeout 120, got %d", cfg.ConversionTimeout)
	}
	if cfg.MaxFileSize != 50*1024*1024 {
		t.Fatalf("expected 50MiB max file size, got %d", cfg.MaxFileSize)
	}
	if cfg.S3Region != "us-east-1" {
		t.Fatalf("expected us-east-1, got %s", cfg.S3Region)
	}
	if cfg.RedisEnabled() {
		t.Fatal("expected redis to be disabled by default")
	}
	if cfg.DatabaseEnabled() {
		t.Fatal("expected database to be disabled by default")
	}
	if cfg.InputDir() != filepath.Join("./data", "inputs") {
		t.Fatalf("unexpected input dir %s", cfg.InputDir())
	}
	if cfg.OutputDir() != filepath.Join("./data", "outputs") {
		t.Fatalf("unexpected output dir %s", cfg.OutputDir())
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("UPLOAD_BUCKET", "in")
	t.Setenv("OUTPUT_BUCKET", "out")
	t.Setenv("STORAGE_BACKEND", "MINIO")
	t.Setenv("MAX_FILE_SIZE", "12345")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PREFIX", "dc:")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.ServerPort)
	}
	if cfg.UploadBucket != "in" || cfg.OutputBucket != "out" {
		t.Fatalf("unexpected buckets: %s, %s", cfg.UploadBucket, cfg.OutputBucket)
	}
	if cfg.StorageBackend != StorageBackendMinio {
		t.Fatalf("expected minio backend, got %s", cfg.StorageBackend)
	}
	if cfg.MaxFileSize != 12345 {
		t.Fatalf("expected max file size 12345, got %d", cfg.MaxFileSize)
	}
	if !cfg.RedisEnabled() {
		t.Fatal("expected redis to be enabled")
	}
	if cfg.PendingQueue != "dc:conversion:pending" {
		t.Fatalf("expected prefixed queue, got %s", cfg.PendingQueue)
	}
	if cfg.StatusKey("abc") != "dc:conversion:status:abc" {
		t.Fatalf("unexpected status key %s", cfg.StatusKey("abc"))
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoad_Fallbacks(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("MAX_FILE_SIZE", "not-a-number")
	t.Setenv("S3_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "eu-west-1")
	t.Setenv("S3_USE_PATH_STYLE_ENDPOINT", "yes")

	cfg := Load()

	if cfg.ServerPort != "9091" {
		t.Fatalf("expected port 9091, got %s", cfg.ServerPort)
	}
	if cfg.MaxFileSize != 50*1024*1024 {
		t.Fatalf("expected default max file size, got %d", cfg.MaxFileSize)
	}
	if cfg.S3Region != "eu-west-1" {
		t.Fatalf("expected legacy region fallback, got %s", cfg.S3Region)
	}
	if !cfg.S3UsePathStyle {
		t.Fatal("expected path style to be enabled")
	}
}

func TestLoad_DatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "p@ss word")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_DATABASE", "")
	t.Setenv("DB_USERNAME", "")
	t.Setenv("DB_SSLMODE", "")

	cfg := Load()

	want := "host=db port=5432 dbname=docconverter user=docconverter password=p@ss word sslmode=disable"
	if cfg.DatabaseURL != want {
		t.Fatalf("expected %q, got %q", want, cfg.DatabaseURL)
	}
	if !cfg.DatabaseEnabled() {
		t.Fatal("expected database to be enabled")
	}
}
