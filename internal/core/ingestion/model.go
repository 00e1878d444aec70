package ingestion

import (
	"time"

	"github.com/jinford/portfolio-chat/internal/core/ingestion/chunk"
)

// IndexedChunk はベクトル付きでインデックスに保存するチャンク
type IndexedChunk struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata chunk.Metadata
}

// IndexStats はインデックスの状態
type IndexStats struct {
	Name      string
	Dimension int
	Count     int64
}

// Report はインジェスト処理の結果を表す
type Report struct {
	Index    IndexStats
	Chunks   int // 入力チャンク数
	Stored   int // 保存に成功したチャンク数
	Skipped  int // Embedding失敗でスキップしたチャンク数
	Batches  int // 保存したバッチ数
	Duration time.Duration
}
