package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries process-level settings loaded from the environment.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	EmbedderURL    string
	EmbeddingModel string
	EmbedTimeout   int

	RerankerURL     string
	RerankModel     string
	RerankProvider  string
	RerankTimeout   int
	RerankRateLimit float64

	LexicalIndexURL     string
	LexicalIndexTimeout int

	CacheSize    int
	CacheTTLSecs int

	SamplingRate   float64
	FlushInterval  int
	FlushThreshold int

	EnableOTelLogs bool
}

// Load reads configuration from environment variables with development
// defaults.
func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "retrieval-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "retrieval_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "retrieval_password"),
		DBName:     getEnv("DB_NAME", "retrieval_db"),

		EmbedderURL:    getEnv("EMBEDDER_URL", "http://embedder:11434"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		EmbedTimeout:   getEnvInt("EMBED_TIMEOUT_SECONDS", 30),

		RerankerURL:     getEnv("RERANKER_URL", "http://reranker:8001"),
		RerankModel:     getEnv("RERANK_MODEL", "bge-reranker-v2-m3"),
		RerankProvider:  getEnv("RERANK_PROVIDER", "cross-encoder"),
		RerankTimeout:   getEnvInt("RERANK_TIMEOUT_SECONDS", 30),
		RerankRateLimit: getEnvFloat("RERANK_RATE_LIMIT_RPS", 10),

		LexicalIndexURL:     getEnv("LEXICAL_INDEX_URL", "http://search-indexer:9300"),
		LexicalIndexTimeout: getEnvInt("LEXICAL_INDEX_TIMEOUT_SECONDS", 10),

		CacheSize:    getEnvInt("RESULT_CACHE_SIZE", 256),
		CacheTTLSecs: getEnvInt("RESULT_CACHE_TTL_SECONDS", 300),

		SamplingRate:   getEnvFloat("ANALYTICS_SAMPLING_RATE", 1.0),
		FlushInterval:  getEnvInt("ANALYTICS_FLUSH_INTERVAL_SECONDS", 30),
		FlushThreshold: getEnvInt("ANALYTICS_FLUSH_THRESHOLD", 100),

		EnableOTelLogs: getEnv("ENABLE_OTEL_LOGS", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads a value directly from the environment or, failing
// that, from a file named by fileEnvKey (docker/k8s secret mounts).
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
