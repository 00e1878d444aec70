package ask

import (
	"context"

	"github.com/samber/mo"
)

// CompletionRequest はLLMへのテキスト生成リクエスト
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  mo.Option[float64]
	MaxTokens    int
}

// CompletionResponse はLLMの生成結果
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenCounter はプロンプトのトークン数を扱うインターフェース
type TokenCounter interface {
	CountTokens(text string) int
	Truncate(text string, maxTokens int) string
}
