package ask

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/mo"

	"github.com/jinford/portfolio-chat/internal/core/search"
)

const (
	// DefaultGenerationModel は回答生成に使うモデル
	DefaultGenerationModel = "gemini-1.5-pro"
	// DefaultTemperature は回答生成の温度
	DefaultTemperature = 0.7
	// DefaultMaxTokens は回答の最大出力トークン数
	DefaultMaxTokens = 1000
	// DefaultJobDescriptionMaxTokens は求人票として受け付ける最大トークン数
	DefaultJobDescriptionMaxTokens = 2000
)

// GenerateParams は回答生成の入力
type GenerateParams struct {
	Question       string
	Classification Classification
	Chunks         []search.RetrievedChunk
	JobDescription mo.Option[string]
}

// Generator は検索結果に基づいて回答を生成する
type Generator struct {
	llm                     LLMClient
	model                   string
	temperature             float64
	maxTokens               int
	tokens                  TokenCounter
	maxJobDescriptionTokens int
	logger                  *slog.Logger
}

// GeneratorOption は Generator のオプション
type GeneratorOption func(*Generator)

// WithGeneratorModel はモデル名を上書きする
func WithGeneratorModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithSampling は温度と最大出力トークン数を設定する
func WithSampling(temperature float64, maxTokens int) GeneratorOption {
	return func(g *Generator) {
		g.temperature = temperature
		if maxTokens > 0 {
			g.maxTokens = maxTokens
		}
	}
}

// WithTokenCounter は求人票の切り詰めに使うトークンカウンタを設定する
func WithTokenCounter(counter TokenCounter, maxJobDescriptionTokens int) GeneratorOption {
	return func(g *Generator) {
		g.tokens = counter
		if maxJobDescriptionTokens > 0 {
			g.maxJobDescriptionTokens = maxJobDescriptionTokens
		}
	}
}

// WithGeneratorLogger はロガーを設定する
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator は新しい Generator を作成する
func NewGenerator(llm LLMClient, opts ...GeneratorOption) *Generator {
	g := &Generator{
		llm:                     llm,
		model:                   DefaultGenerationModel,
		temperature:             DefaultTemperature,
		maxTokens:               DefaultMaxTokens,
		maxJobDescriptionTokens: DefaultJobDescriptionMaxTokens,
		logger:                  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Generate は回答文を返す。モデルのエラーは謝罪文に置き換え、エラーとしては返さない
// PERSONAL / SALARY / OUT_OF_SCOPE はモデルを呼ばずに定型応答を返す
func (g *Generator) Generate(ctx context.Context, params GenerateParams) string {
	if params.Classification.Restricted() {
		return FallbackResponse(params.Classification)
	}

	jobDescription := ""
	if params.Classification == ClassJobFit {
		jobDescription = g.boundJobDescription(params.JobDescription)
	}

	prompt := BuildAnswerPrompt(params.Question, params.Chunks, jobDescription)

	logArgs := []any{
		"classification", params.Classification,
		"contexts", len(params.Chunks),
		"withJobDescription", jobDescription != "",
	}
	if g.tokens != nil {
		logArgs = append(logArgs, "promptTokens", g.tokens.CountTokens(prompt))
	}
	g.logger.Info("generating answer", logArgs...)

	resp, err := g.llm.GenerateCompletion(ctx, CompletionRequest{
		Model:        g.model,
		SystemPrompt: SystemPrompt,
		Prompt:       prompt,
		Temperature:  mo.Some(g.temperature),
		MaxTokens:    g.maxTokens,
	})
	if err != nil {
		g.logger.Error("answer generation failed", "error", err)
		return generationErrorResponse
	}

	if strings.TrimSpace(resp.Content) == "" {
		g.logger.Warn("answer generation returned empty content")
		return emptyAnswerResponse
	}

	g.logger.Info("answer generated",
		"answerLength", len(resp.Content),
		"tokensUsed", resp.TokensUsed,
	)
	return resp.Content
}

// boundJobDescription は空の求人票を無視し、トークン上限を超える分を切り詰める
func (g *Generator) boundJobDescription(jd mo.Option[string]) string {
	text := strings.TrimSpace(jd.OrEmpty())
	if text == "" {
		return ""
	}
	if g.tokens == nil {
		return text
	}
	if n := g.tokens.CountTokens(text); n > g.maxJobDescriptionTokens {
		g.logger.Info("truncating job description",
			"tokens", n,
			"limit", g.maxJobDescriptionTokens,
		)
		return g.tokens.Truncate(text, g.maxJobDescriptionTokens)
	}
	return text
}
