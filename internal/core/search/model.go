package search

import (
	"github.com/jinford/portfolio-chat/internal/core/ingestion/chunk"
)

// DefaultTopK は検索結果の既定件数
const DefaultTopK = 5

// RetrievedChunk は検索で得られたチャンク
// Score はベクトル経路ではコサイン類似度、キーワード経路では一致語の割合で、
// 両者は比較できないため1つの結果列に混在させない
type RetrievedChunk struct {
	ID       string
	Content  string
	Metadata chunk.Metadata
	Score    float64
}

// Strategy は結果を生成した検索経路
type Strategy string

const (
	StrategyVector  Strategy = "vector"
	StrategyKeyword Strategy = "keyword"
)

// VectorStatus はベクトル検索の結果種別
type VectorStatus int

const (
	// VectorHits は1件以上ヒットした
	VectorHits VectorStatus = iota
	// VectorEmpty は正常応答だが0件だった
	VectorEmpty
	// VectorUnavailable はインデックスが未設定
	VectorUnavailable
	// VectorFailed はインデックス呼び出しが失敗した
	VectorFailed
)

// String はログ出力用の名前を返す
func (s VectorStatus) String() string {
	switch s {
	case VectorHits:
		return "hits"
	case VectorEmpty:
		return "empty"
	case VectorUnavailable:
		return "unavailable"
	case VectorFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// VectorOutcome はベクトル検索の明示的な結果
// フォールバックの判断は呼び出し側が Status を見て行う
type VectorOutcome struct {
	Status VectorStatus
	Chunks []RetrievedChunk
	Err    error // VectorFailed / VectorUnavailable のときのみ設定
}

// NeedsFallback はキーワード検索へ切り替えるべきかを返す
func (o VectorOutcome) NeedsFallback() bool {
	return o.Status != VectorHits
}
