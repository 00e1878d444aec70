package ingestion

import (
	"context"
	"errors"
)

// ErrIndexMissing はインジェスト先のインデックスが存在しない場合のエラー
var ErrIndexMissing = errors.New("vector index does not exist")

// IndexWriter はインジェスト先のベクトルインデックス
// テスト時のモック用に消費者側で定義
type IndexWriter interface {
	// Describe はインデックスの存在確認を行う。存在しない場合は ErrIndexMissing を返す
	Describe(ctx context.Context) (IndexStats, error)
	// Upsert は同一IDのレコードを置き換える
	Upsert(ctx context.Context, chunks []IndexedChunk) error
}

// Embedder はチャンク本文のEmbedding生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
