package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	APIPort  string
	APIKey   string
	LogLevel string

	RedisURL          string
	JobRetentionHours int

	NATSURL         string
	NATSSubject     string
	AsyncProcessing bool

	StoragePath         string
	MaxFileSizeBytes    int64
	AllowedContentTypes string

	OCREngine          string
	OCRTimeoutSeconds  int
	TesseractLanguages string

	VLLMBaseURL string
	VLLMModel   string
	VLLMAPIKey  string

	APIRateLimitRPS   int
	APIRateLimitBurst int
	APIMaxConcurrent  int

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8001"),
		APIKey:   mustEnv("API_KEY", ""),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		RedisURL:          mustEnv("REDIS_URL", "redis://localhost:6379/0"),
		JobRetentionHours: mustEnvInt("JOB_RETENTION_HOURS", 24),

		NATSURL:         mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:     mustEnv("NATS_SUBJECT", "ocr.jobs"),
		AsyncProcessing: mustEnvBool("ASYNC_PROCESSING", false),

		StoragePath:         mustEnv("STORAGE_PATH", "./data/uploads"),
		MaxFileSizeBytes:    mustEnvInt64("MAX_FILE_SIZE", 52428800),
		AllowedContentTypes: mustEnv("ALLOWED_CONTENT_TYPES", "application/pdf,image/png,image/jpeg,image/webp,image/tiff"),

		OCREngine:          mustEnv("OCR_ENGINE", "tesseract"),
		OCRTimeoutSeconds:  mustEnvInt("OCR_TIMEOUT_SECONDS", 120),
		TesseractLanguages: mustEnv("TESSERACT_LANGUAGES", "eng"),

		VLLMBaseURL: mustEnv("VLLM_BASE_URL", "http://localhost:8000/v1"),
		VLLMModel:   mustEnv("VLLM_MODEL", "chandra"),
		VLLMAPIKey:  mustEnv("VLLM_API_KEY", ""),

		APIRateLimitRPS:   mustEnvInt("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxConcurrent:  mustEnvInt("API_MAX_CONCURRENT", 8),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// AllowedTypes returns the parsed content-type allow list.
func (c Config) AllowedTypes() []string {
	parts := strings.Split(c.AllowedContentTypes, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// Languages returns the parsed tesseract language list.
func (c Config) Languages() []string {
	parts := strings.Split(c.TesseractLanguages, "+")
	langs := make([]string, 0, len(parts))
	for _, p := range parts {
		if l := strings.TrimSpace(p); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
