package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/portfolio-chat/internal/core/ask"
)

// Encoding は使用するエンコーディング名
const Encoding = "cl100k_base"

// Counter は tiktoken を利用した TokenCounter 実装
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter は新しい Counter を作成する
func NewCounter() (*Counter, error) {
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &Counter{encoding: enc}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (c *Counter) CountTokens(text string) int {
	if c.encoding == nil {
		return EstimateTokens(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Truncate は maxTokens を超える部分を切り捨てる
func (c *Counter) Truncate(text string, maxTokens int) string {
	if c.encoding == nil {
		return Estimator{}.Truncate(text, maxTokens)
	}
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.encoding.Decode(tokens[:maxTokens])
}

// Estimator はエンコーディングを読み込めない環境向けの概算実装
type Estimator struct{}

// CountTokens は概算のトークン数を返す
func (Estimator) CountTokens(text string) int {
	return EstimateTokens(text)
}

// Truncate は概算トークン数に対応する文字数で切り捨てる
func (Estimator) Truncate(text string, maxTokens int) string {
	runes := []rune(text)
	limit := maxTokens * charsPerToken
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// 英語で約4文字、日本語で約1文字が1トークン。平均として3文字とする
const charsPerToken = 3

// EstimateTokens はテキストの推定トークン数を返す
func EstimateTokens(text string) int {
	n := len([]rune(text))
	return (n + charsPerToken - 1) / charsPerToken
}

// インターフェース実装の確認
var (
	_ ask.TokenCounter = (*Counter)(nil)
	_ ask.TokenCounter = Estimator{}
)
