package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
)

// VectorRetriever は VectorIndex に問い合わせ、結果を VectorOutcome に正規化する
type VectorRetriever struct {
	index  VectorIndex
	logger *slog.Logger
}

// VectorRetrieverOption は VectorRetriever のオプション
type VectorRetrieverOption func(*VectorRetriever)

// WithVectorLogger はロガーを設定する
func WithVectorLogger(logger *slog.Logger) VectorRetrieverOption {
	return func(r *VectorRetriever) {
		r.logger = logger
	}
}

// NewVectorRetriever は新しい VectorRetriever を作成する
// index が nil の場合は常に VectorUnavailable を返す
func NewVectorRetriever(index VectorIndex, opts ...VectorRetrieverOption) *VectorRetriever {
	r := &VectorRetriever{
		index:  index,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Retrieve はベクトル検索を実行する
// エラーは返さず、失敗や0件は VectorOutcome.Status で表現する
func (r *VectorRetriever) Retrieve(ctx context.Context, vector []float32, topK int) VectorOutcome {
	if topK <= 0 {
		topK = DefaultTopK
	}

	if r.index == nil {
		return VectorOutcome{Status: VectorUnavailable, Err: ErrIndexNotConfigured}
	}

	chunks, err := r.index.Query(ctx, vector, topK)
	if err != nil {
		if errors.Is(err, ErrIndexNotConfigured) {
			r.logger.Info("vector index not configured")
			return VectorOutcome{Status: VectorUnavailable, Err: err}
		}
		r.logger.Warn("vector query failed", "error", err)
		return VectorOutcome{Status: VectorFailed, Err: err}
	}

	if len(chunks) == 0 {
		return VectorOutcome{Status: VectorEmpty}
	}

	// インデックス側の並びに依存せず降順を保証する
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	return VectorOutcome{Status: VectorHits, Chunks: chunks}
}
