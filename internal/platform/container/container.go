package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/portfolio-chat/internal/core/ask"
	"github.com/jinford/portfolio-chat/internal/core/ingestion"
	"github.com/jinford/portfolio-chat/internal/core/ingestion/chunk"
	"github.com/jinford/portfolio-chat/internal/core/knowledge"
	"github.com/jinford/portfolio-chat/internal/core/search"
	"github.com/jinford/portfolio-chat/internal/infra/openai"
	"github.com/jinford/portfolio-chat/internal/infra/postgres"
	"github.com/jinford/portfolio-chat/internal/infra/tokenizer"
	"github.com/jinford/portfolio-chat/internal/platform/config"
)

// Embedder は質問応答とインジェストの両方で使う Embedding 生成器
type Embedder interface {
	ask.Embedder
	ingestion.Embedder
}

// ServiceContainer はアプリケーションの依存関係を保持する
type ServiceContainer struct {
	Config        *config.Config
	KnowledgeBase *knowledge.KnowledgeBase
	AskService    *ask.Service
	IngestService *ingestion.Service
	VectorIndex   *postgres.VectorIndex

	logger *slog.Logger
	handle *postgres.Handle
}

type containerOptions struct {
	logger        *slog.Logger
	llmClient     ask.LLMClient
	embedder      Embedder
	tokenCounter  ask.TokenCounter
	knowledgeBase *knowledge.KnowledgeBase
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client ask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter ask.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// WithContainerKnowledgeBase はファイルから読み込む代わりにナレッジベースを注入する
func WithContainerKnowledgeBase(kb *knowledge.KnowledgeBase) ContainerOption {
	return func(opts *containerOptions) {
		opts.knowledgeBase = kb
	}
}

// NewContainer は設定からコンテナを生成する
// ベクトルインデックスへの接続は初回利用時まで行わない
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	// KnowledgeBase（読み込めない場合は起動を中止する）
	kb := options.knowledgeBase
	if kb == nil {
		loaded, err := knowledge.Load(cfg.KnowledgeBasePath)
		if err != nil {
			return nil, fmt.Errorf("ナレッジベースの読み込みに失敗しました: %w", err)
		}
		kb = loaded
	}

	// LLMClient（OpenAI 互換エンドポイント）
	llmClient := options.llmClient
	if llmClient == nil {
		client, err := openai.NewClient(
			cfg.LLM.APIKey,
			openai.WithBaseURL(cfg.LLM.BaseURL),
			openai.WithModel(cfg.LLM.ClassifierModel),
			openai.WithTimeout(cfg.LLM.Timeout),
			openai.WithRateLimitRetries(cfg.LLM.MaxRetries, 0, 0),
		)
		if err != nil {
			return nil, fmt.Errorf("LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = client
	}

	// Embedder
	embedder := options.embedder
	if embedder == nil {
		e, err := openai.NewEmbedder(
			cfg.LLM.APIKey,
			openai.WithEmbeddingBaseURL(cfg.LLM.BaseURL),
			openai.WithEmbeddingModel(cfg.Embedding.Model),
			openai.WithEmbeddingDimension(cfg.Embedding.Dimension),
		)
		if err != nil {
			return nil, fmt.Errorf("Embedder 初期化に失敗しました: %w", err)
		}
		embedder = e
	}

	// TokenCounter（エンコーディングを取得できない環境では概算にフォールバック）
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := tokenizer.NewCounter()
		if err != nil {
			logger.Warn("tiktoken unavailable, using estimated token counts", "error", err)
			tokenCounter = tokenizer.Estimator{}
		} else {
			tokenCounter = counter
		}
	}

	// VectorIndex（pgvector）
	handle := postgres.NewHandle(cfg.VectorIndex.URL)
	vectorIndex := postgres.NewVectorIndex(
		handle,
		cfg.VectorIndex.Name,
		cfg.Embedding.Dimension,
		postgres.WithIndexLogger(logger),
	)
	if !handle.Configured() {
		logger.Warn("VECTOR_DB_URL not set, answers will use keyword retrieval")
	}

	// AskService
	askService := ask.NewService(
		ask.NewClassifier(llmClient,
			ask.WithClassifierModel(cfg.LLM.ClassifierModel),
			ask.WithClassifierLogger(logger),
		),
		embedder,
		search.NewVectorRetriever(vectorIndex, search.WithVectorLogger(logger)),
		search.NewKeywordRetriever(kb),
		ask.NewGenerator(llmClient,
			ask.WithGeneratorModel(cfg.LLM.GenerationModel),
			ask.WithSampling(cfg.LLM.Temperature, cfg.LLM.MaxTokens),
			ask.WithTokenCounter(tokenCounter, cfg.LLM.JobDescriptionMaxTokens),
			ask.WithGeneratorLogger(logger),
		),
		ask.WithTopK(cfg.VectorIndex.TopK),
		ask.WithAskLogger(logger),
	)

	// IngestService
	ingestService := ingestion.NewService(
		vectorIndex,
		embedder,
		ingestion.WithBatchSize(cfg.Ingest.BatchSize),
		ingestion.WithPacer(ingestion.NewRatePacer(cfg.Ingest.Delay)),
		ingestion.WithIngestLogger(logger),
	)

	return &ServiceContainer{
		Config:        cfg,
		KnowledgeBase: kb,
		AskService:    askService,
		IngestService: ingestService,
		VectorIndex:   vectorIndex,
		logger:        logger,
		handle:        handle,
	}, nil
}

// Chunks はナレッジベースから導出したチャンクを返す
func (c *ServiceContainer) Chunks() []chunk.Chunk {
	return chunk.Build(c.KnowledgeBase)
}

// Close は内部リソースを解放する
func (c *ServiceContainer) Close() {
	if c != nil && c.handle != nil {
		c.handle.Close()
	}
}

// Logger はロガーを返す
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
