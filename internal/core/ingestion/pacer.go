package ingestion

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEmbedInterval は連続するEmbedding呼び出しの間隔
const DefaultEmbedInterval = 50 * time.Millisecond

// Pacer は外部APIの呼び出し間隔を制御する
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer は rate.Limiter による Pacer 実装
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer は interval ごとに1回だけ通過させる Pacer を作成する
// interval が0以下の場合は待機しない
func NewRatePacer(interval time.Duration) *RatePacer {
	if interval <= 0 {
		return &RatePacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait は次の呼び出しが許可されるまで待機する
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
