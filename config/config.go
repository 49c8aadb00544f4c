package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageBackendS3    = "s3"
	StorageBackendMinio = "minio"

	DocxEngineSoffice   = "soffice"
	DocxEngineGotenberg = "gotenberg"
)

type Config struct {
	ServerPort string
	ScratchDir string

	UploadBucket   string
	OutputBucket   string
	StorageBackend string
	S3Region       string
	AWSS3AccessKey string
	AWSS3SecretKey string
	S3Endpoint     string
	S3UsePathStyle bool
	MinioEndpoint  string
	MinioUseSSL    bool

	DocxEngine    string
	SofficeBin    string
	Pdf2DocxBin   string
	GotenbergURL  string
	GotenbergPDFA string

	ConversionTimeout int
	MaxFileSize       int64
	MaxConcurrent     int
	QueueWaitTimeout  int
	ScratchMaxAge     int

	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
	PendingQueue    string
	ProcessingQueue string
	FailedQueue     string
	WorkerCount     int
	MaxRetries      int
	StaleJobAge     int

	DatabaseURL string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: .env file could not be loaded: %v", err)
	}

	redisPrefix := getEnv("REDIS_PREFIX", "")

	return &Config{
		// PaaS platforms hand the port over in PORT; SERVER_PORT is kept for local runs.
		ServerPort: getEnv("PORT", getEnv("SERVER_PORT", "5000")),
		ScratchDir: getEnv("SCRATCH_DIR", "./data"),

		UploadBucket:   getEnv("UPLOAD_BUCKET", "doc-input-conversion"),
		OutputBucket:   getEnv("OUTPUT_BUCKET", "doc-output-conversion"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendS3)),
		// Prefer unified S3_* vars, fall back to legacy AWS_* vars for compatibility
		S3Region:       getEnvWithFallback("S3_REGION", "AWS_DEFAULT_REGION", "us-east-1"),
		AWSS3AccessKey: getEnvWithFallback("S3_KEY", "AWS_ACCESS_KEY_ID", ""),
		AWSS3SecretKey: getEnvWithFallback("S3_SECRET", "AWS_SECRET_ACCESS_KEY", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE_ENDPOINT", false),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		DocxEngine:    strings.ToLower(getEnv("DOCX_ENGINE", DocxEngineSoffice)),
		SofficeBin:    getEnv("SOFFICE_BIN", "soffice"),
		Pdf2DocxBin:   getEnv("PDF2DOCX_BIN", "pdf2docx"),
		GotenbergURL:  getEnv("GOTENBERG_URL", "http://gotenberg:3000"),
		GotenbergPDFA: getEnv("GOTENBERG_PDFA", ""),

		ConversionTimeout: getEnvInt("CONVERSION_TIMEOUT", 120),
		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 50*1024*1024),
		MaxConcurrent:     getEnvInt("MAX_CONCURRENT_CONVERSIONS", 4),
		QueueWaitTimeout:  getEnvInt("QUEUE_WAIT_TIMEOUT", 30),
		ScratchMaxAge:     getEnvInt("SCRATCH_MAX_AGE", 3600),

		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   redisPrefix,
		PendingQueue:  applyPrefix(getEnv("CONVERSION_PENDING_QUEUE", "conversion:pending"), redisPrefix),
		ProcessingQueue: applyPrefix(
			getEnv("CONVERSION_PROCESSING_QUEUE", "conversion:processing"),
			redisPrefix,
		),
		FailedQueue: applyPrefix(
			getEnv("CONVERSION_FAILED_QUEUE", "conversion:failed"),
			redisPrefix,
		),
		WorkerCount: getEnvInt("WORKER_COUNT", 2),
		MaxRetries:  getEnvInt("CONVERSION_MAX_RETRIES", 3),
		StaleJobAge: getEnvInt("STALE_JOB_AGE", 300),

		DatabaseURL: databaseURL(),
	}
}

// InputDir is the scratch directory for received files.
func (c *Config) InputDir() string {
	return filepath.Join(c.ScratchDir, "inputs")
}

// OutputDir is the scratch directory for produced files.
func (c *Config) OutputDir() string {
	return filepath.Join(c.ScratchDir, "outputs")
}

// RedisEnabled reports whether the trigger queue and status tracking are configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// DatabaseEnabled reports whether the conversion audit store is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.DatabaseURL != ""
}

// StatusKey is the Redis hash holding the status of one trigger job.
func (c *Config) StatusKey(jobID string) string {
	return applyPrefix("conversion:status:"+jobID, c.RedisPrefix)
}

// databaseURL builds a lib/pq key=value connection string, or returns "" when
// DB_HOST is unset and auditing is off. An explicit DATABASE_URL wins.
func databaseURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	dbHost := getEnv("DB_HOST", "")
	if dbHost == "" {
		return ""
	}
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_DATABASE", "docconverter")
	dbUser := getEnv("DB_USERNAME", "docconverter")
	dbPassword := getEnv("DB_PASSWORD", "")
	dbSSLMode := getEnv("DB_SSLMODE", "disable")

	// lib/pq supports "key=value" connection strings and this avoids
	// URI escaping issues for special characters in passwords.
	if dbPassword != "" {
		return fmt.Sprintf(
			"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
			dbHost, dbPort, dbName, dbUser, dbPassword, dbSSLMode,
		)
	}
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s sslmode=%s",
		dbHost, dbPort, dbName, dbUser, dbSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvWithFallback(primaryKey, secondaryKey, fallback string) string {
	if value := os.Getenv(primaryKey); value != "" {
		return value
	}
	if value := os.Getenv(secondaryKey); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func applyPrefix(key string, prefix string) string {
	if prefix == "" {
		return key
	}
	return prefix + key
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}
