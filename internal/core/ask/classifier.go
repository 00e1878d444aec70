package ask

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultClassifierModel は分類に使うモデル
const DefaultClassifierModel = "gemini-1.5-flash"

// jobFitCues はモデル呼び出し失敗時に JOB_FIT と判定する手掛かり
var jobFitCues = []string{"job description", "job fit"}

// Classifier は質問を分類ラベルに振り分ける
type Classifier struct {
	llm    LLMClient
	model  string
	logger *slog.Logger
}

// ClassifierOption は Classifier のオプション
type ClassifierOption func(*Classifier)

// WithClassifierModel はモデル名を上書きする
func WithClassifierModel(model string) ClassifierOption {
	return func(c *Classifier) {
		if model != "" {
			c.model = model
		}
	}
}

// WithClassifierLogger はロガーを設定する
func WithClassifierLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// NewClassifier は新しい Classifier を作成する
func NewClassifier(llm LLMClient, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		llm:    llm,
		model:  DefaultClassifierModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Classify は質問を分類する。失敗してもパイプラインを止めない
//   - モデル呼び出しエラー: ヒューリスティック（JOB_FIT か ALLOWED）
//   - 未知のラベル: OUT_OF_SCOPE
//   - 既知のラベル: そのまま
func (c *Classifier) Classify(ctx context.Context, question string) Classification {
	resp, err := c.llm.GenerateCompletion(ctx, CompletionRequest{
		Model:  c.model,
		Prompt: BuildClassificationPrompt(question),
	})
	if err != nil {
		fallback := HeuristicClassification(question)
		c.logger.Warn("classification failed, using heuristic",
			"error", err,
			"classification", fallback,
		)
		return fallback
	}

	label, ok := ParseClassification(resp.Content)
	if !ok {
		c.logger.Info("unrecognized classification label", "label", resp.Content)
		return ClassOutOfScope
	}

	return label
}

// HeuristicClassification はモデルを使わない分類
func HeuristicClassification(question string) Classification {
	lower := strings.ToLower(question)
	for _, cue := range jobFitCues {
		if strings.Contains(lower, cue) {
			return ClassJobFit
		}
	}
	return ClassAllowed
}
