package search

import (
	"context"
	"errors"
)

// ErrIndexNotConfigured はベクトルインデックスの接続情報が無い場合のエラー
var ErrIndexNotConfigured = errors.New("vector index not configured")

// VectorIndex は近傍検索を提供する外部インデックスの読み取りインターフェース
type VectorIndex interface {
	// Query は類似度の降順で最大 topK 件を返す
	Query(ctx context.Context, vector []float32, topK int) ([]RetrievedChunk, error)
}
