// Package config は環境変数と .env ファイルから設定を読み込む
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"

	EmbeddingModeDeterministic = "det"
	EmbeddingModeOpenAI        = "openai"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// ストア・キャッシュの実装選択
	StoreBackend string
	CacheBackend string
	RedisAddr    string

	// Embedding設定
	Embedding EmbeddingConfig

	// 既定のコンテンツバージョン
	ContentVersion int

	Chunk     ChunkConfig
	Retrieval RetrievalConfig
	PDF       PDFConfig

	// 目次抽出結果の JSON 出力先（空なら出力しない）
	TocDebugDir string

	// 教科カタログ（YAML）のパス
	SubjectCatalog string

	HTTPAddr string

	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// EmbeddingConfig は Embedding 生成の設定
type EmbeddingConfig struct {
	Mode      string // "det" or "openai"
	APIKey    string
	Model     string
	Dimension int
}

// ChunkConfig はチャンク分割の語数設定
type ChunkConfig struct {
	MinWords     int
	MaxWords     int
	OverlapWords int
}

// RetrievalConfig は検索とキャッシュの設定
type RetrievalConfig struct {
	CandidateLimit  int
	TopK            int
	MinTermOverlap  int
	MinLexicalScore float64
	RetrievalTTL    time.Duration
	AnswerTTL       time.Duration
}

// PDFConfig は PDF 読み取りと OCR の設定
type PDFConfig struct {
	UseOCR     bool
	OCRDir     string // OCR 済み PDF の置き場所（同名ファイルがあれば優先）
	OCRTimeout time.Duration
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "textbook"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "textbook_rag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendPostgres)),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		Embedding: EmbeddingConfig{
			Mode:      strings.ToLower(getEnv("EMBEDDING_MODE", EmbeddingModeDeterministic)),
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		ContentVersion: getEnvAsInt("CONTENT_VERSION", 1),
		Chunk: ChunkConfig{
			MinWords:     getEnvAsInt("CHUNK_MIN_WORDS", 300),
			MaxWords:     getEnvAsInt("CHUNK_MAX_WORDS", 700),
			OverlapWords: getEnvAsInt("CHUNK_OVERLAP_WORDS", 90),
		},
		Retrieval: RetrievalConfig{
			CandidateLimit:  getEnvAsInt("RETRIEVAL_CANDIDATE_LIMIT", 1200),
			TopK:            getEnvAsInt("RETRIEVAL_TOP_K", 5),
			MinTermOverlap:  getEnvAsInt("RETRIEVAL_MIN_TERM_OVERLAP", 1),
			MinLexicalScore: getEnvAsFloat("RETRIEVAL_MIN_LEXICAL_SCORE", 20),
			RetrievalTTL:    getEnvAsDuration("RETRIEVAL_CACHE_TTL", 7*24*time.Hour),
			AnswerTTL:       getEnvAsDuration("ANSWER_CACHE_TTL", 30*24*time.Hour),
		},
		PDF: PDFConfig{
			UseOCR:     getEnvAsBool("PDF_USE_OCR", false),
			OCRDir:     getEnv("PDF_OCR_DIR", ""),
			OCRTimeout: getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
		},
		TocDebugDir:    getEnvAllowEmpty("TOC_DEBUG_DIR", "data/toc"),
		SubjectCatalog: getEnv("SUBJECT_CATALOG", "subjects.yaml"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は選択肢の値を検証します
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND: %q", c.StoreBackend)
	}
	switch c.CacheBackend {
	case CacheBackendPostgres, CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND: %q", c.CacheBackend)
	}
	switch c.Embedding.Mode {
	case EmbeddingModeDeterministic, EmbeddingModeOpenAI:
	default:
		return fmt.Errorf("unknown EMBEDDING_MODE: %q", c.Embedding.Mode)
	}
	if c.Chunk.MinWords <= 0 || c.Chunk.MaxWords < c.Chunk.MinWords || c.Chunk.OverlapWords < 0 {
		return fmt.Errorf("invalid chunk words: min=%d max=%d overlap=%d", c.Chunk.MinWords, c.Chunk.MaxWords, c.Chunk.OverlapWords)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty は明示的に空文字が設定された場合も空文字を返します
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
