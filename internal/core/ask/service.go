package ask

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/mo"

	"github.com/jinford/portfolio-chat/internal/core/search"
)

// QuestionClassifier は質問分類のインターフェース
type QuestionClassifier interface {
	Classify(ctx context.Context, question string) Classification
}

// AnswerGenerator は回答生成のインターフェース
type AnswerGenerator interface {
	Generate(ctx context.Context, params GenerateParams) string
}

// VectorSearcher はベクトル検索のインターフェース
type VectorSearcher interface {
	Retrieve(ctx context.Context, vector []float32, topK int) search.VectorOutcome
}

// KeywordSearcher はキーワード検索のインターフェース
type KeywordSearcher interface {
	Retrieve(query string, topK int) []search.RetrievedChunk
}

// stage はリクエスト処理の状態（ログ出力用）
type stage string

const (
	stageStart      stage = "START"
	stageClassified stage = "CLASSIFIED"
	stageShortCut   stage = "SHORT_CIRCUIT_FALLBACK"
	stageEmbedding  stage = "EMBEDDING"
	stageRetrieved  stage = "RETRIEVED"
	stageGenerated  stage = "GENERATED"
	stageError      stage = "ERROR"
)

// Service は 分類 → Embedding → 検索 → 回答生成 を順に実行する
// リクエスト間で状態を持たない
type Service struct {
	classifier QuestionClassifier
	embedder   Embedder
	vector     VectorSearcher
	keyword    KeywordSearcher
	generator  AnswerGenerator
	topK       int
	logger     *slog.Logger
}

// ServiceOption は Service のオプション
type ServiceOption func(*Service)

// WithAskLogger は Service にロガーを設定する
func WithAskLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTopK は検索件数を設定する
func WithTopK(topK int) ServiceOption {
	return func(s *Service) {
		if topK > 0 {
			s.topK = topK
		}
	}
}

// NewService は新しい Service を作成する
func NewService(
	classifier QuestionClassifier,
	embedder Embedder,
	vector VectorSearcher,
	keyword KeywordSearcher,
	generator AnswerGenerator,
	opts ...ServiceOption,
) *Service {
	svc := &Service{
		classifier: classifier,
		embedder:   embedder,
		vector:     vector,
		keyword:    keyword,
		generator:  generator,
		topK:       search.DefaultTopK,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Chat は質問に対してRAGベースで回答を生成する
// 返すエラーは ErrInvalidQuestion / ErrEmbedding / ErrPipelinePanic のいずれかでラップされる
func (s *Service) Chat(ctx context.Context, params ChatParams) (result *ChatResult, err error) {
	logger := loggerFrom(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", "stage", stageError, "panic", r)
			result = nil
			err = fmt.Errorf("%w: %v", ErrPipelinePanic, r)
		}
	}()

	// 1. バリデーション（外部呼び出し前）
	if strings.TrimSpace(params.Question) == "" {
		return nil, ErrInvalidQuestion
	}

	logger.Info("chat request received",
		"stage", stageStart,
		"questionLength", len(params.Question),
		"withJobDescription", params.JobDescription.IsPresent(),
		"historyTurns", len(params.History),
	)

	// 2. 分類
	classification := s.classifier.Classify(ctx, params.Question)
	logger = logger.With("classification", classification)
	logger.Info("question classified", "stage", stageClassified)

	// 3. 制限対象は定型応答で即終了（Embedding・検索・生成は行わない）
	if classification.Restricted() {
		logger.Info("returning scripted response", "stage", stageShortCut)
		return &ChatResult{
			Response:       FallbackResponse(classification),
			Classification: classification,
			Strategy:       mo.None[search.Strategy](),
		}, nil
	}

	// 4. 質問文のEmbedding（失敗時はリクエスト全体を失敗させる）
	logger.Info("embedding question", "stage", stageEmbedding)
	vector, err := s.embedder.Embed(ctx, params.Question)
	if err != nil {
		logger.Error("question embedding failed", "stage", stageError, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vector) == 0 {
		logger.Error("question embedding is empty", "stage", stageError)
		return nil, fmt.Errorf("%w: empty vector", ErrEmbedding)
	}

	// 5. 検索（ベクトル → 必要ならキーワード）
	chunks, strategy := s.retrieve(ctx, logger, vector, params.Question)
	logger.Info("chunks retrieved",
		"stage", stageRetrieved,
		"strategy", strategy,
		"chunks", len(chunks),
	)

	// 6. 回答生成
	answer := s.generator.Generate(ctx, GenerateParams{
		Question:       params.Question,
		Classification: classification,
		Chunks:         chunks,
		JobDescription: params.JobDescription,
	})
	logger.Info("chat completed", "stage", stageGenerated, "answerLength", len(answer))

	// 7. レスポンス組み立て
	return &ChatResult{
		Response:       answer,
		Classification: classification,
		Sources:        CollectSources(chunks),
		Strategy:       mo.Some(strategy),
	}, nil
}

// retrieve はベクトル検索の結果を見てキーワード検索へ切り替えるかを決める
// 切り替えは1リクエストにつき高々1回で、両経路の結果は混在させない
func (s *Service) retrieve(ctx context.Context, logger *slog.Logger, vector []float32, question string) ([]search.RetrievedChunk, search.Strategy) {
	outcome := s.vector.Retrieve(ctx, vector, s.topK)
	if !outcome.NeedsFallback() {
		return outcome.Chunks, search.StrategyVector
	}

	logger.Info("falling back to keyword search", "vectorStatus", outcome.Status.String())
	return s.keyword.Retrieve(question, s.topK), search.StrategyKeyword
}

// CollectSources はチャンクの識別子を検索順に重複・空文字を除いて返す
func CollectSources(chunks []search.RetrievedChunk) []string {
	sources := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		id := c.Metadata.Identifier()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sources = append(sources, id)
	}
	return sources
}
