package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// LLM設定（分類・回答生成）
	LLM LLMConfig

	// Embedding設定
	Embedding EmbeddingConfig

	// ベクトルインデックス設定
	VectorIndex VectorIndexConfig

	// ナレッジベースのファイルパス
	KnowledgeBasePath string

	// インジェスト設定
	Ingest IngestConfig

	// ログ設定
	Log LogConfig

	// HTTPサーバー設定
	Server ServerConfig
}

// LLMConfig は OpenAI 互換 API の設定
type LLMConfig struct {
	APIKey                  string
	BaseURL                 string
	ClassifierModel         string
	GenerationModel         string
	Temperature             float64
	MaxTokens               int
	Timeout                 time.Duration
	MaxRetries              int // 429 時のリトライ回数
	JobDescriptionMaxTokens int
}

// EmbeddingConfig は Embedding モデルの設定
type EmbeddingConfig struct {
	Model     string
	Dimension int
}

// VectorIndexConfig はベクトルインデックスの設定
type VectorIndexConfig struct {
	URL  string // 空の場合はインデックス未設定として扱う
	Name string
	TopK int
}

// IngestConfig はインジェスト処理の設定
type IngestConfig struct {
	BatchSize int
	Delay     time.Duration
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string
	Format string
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Port int
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
		LLM: LLMConfig{
			APIKey:                  getEnv("GEMINI_API_KEY", ""),
			BaseURL:                 getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			ClassifierModel:         getEnv("CLASSIFIER_MODEL", "gemini-1.5-flash"),
			GenerationModel:         getEnv("GENERATION_MODEL", "gemini-1.5-pro"),
			Temperature:             getEnvAsFloat("GENERATION_TEMPERATURE", 0.7),
			MaxTokens:               getEnvAsInt("GENERATION_MAX_TOKENS", 1000),
			Timeout:                 time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
			MaxRetries:              getEnvAsInt("LLM_MAX_RETRIES", 0),
			JobDescriptionMaxTokens: getEnvAsInt("JOB_DESCRIPTION_MAX_TOKENS", 2000),
		},
		Embedding: EmbeddingConfig{
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
		},
		VectorIndex: VectorIndexConfig{
			URL:  getEnv("VECTOR_DB_URL", ""),
			Name: getEnv("VECTOR_INDEX_NAME", "portfolio-chunks"),
			TopK: getEnvAsInt("RETRIEVAL_TOP_K", 5),
		},
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", "data/portfolio-data.json"),
		Ingest: IngestConfig{
			BatchSize: getEnvAsInt("INGEST_BATCH_SIZE", 100),
			Delay:     time.Duration(getEnvAsInt("INGEST_DELAY_MS", 50)) * time.Millisecond,
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
	}

	return cfg, nil
}

// ValidateForServe は質問応答（serve / ask）に必要な設定を検証します
// ベクトルインデックスは任意（未設定時はキーワード検索で応答する）
func (c *Config) ValidateForServe() error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive: %d", c.Embedding.Dimension))
	}
	if c.KnowledgeBasePath == "" {
		errs = append(errs, errors.New("KNOWLEDGE_BASE_PATH is required"))
	}
	return errors.Join(errs...)
}

// ValidateForIngest はインジェストに必要な設定を検証します
func (c *Config) ValidateForIngest() error {
	var errs []error
	if err := c.ValidateForServe(); err != nil {
		errs = append(errs, err)
	}
	if c.VectorIndex.URL == "" {
		errs = append(errs, errors.New("VECTOR_DB_URL is required"))
	}
	return errors.Join(errs...)
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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
