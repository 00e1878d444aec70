package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/portfolio-chat/internal/core/search"
)

// Handle はコネクションプールを初回利用時に作成して保持する
// 作成に失敗した場合はキャッシュせず、次回の呼び出しで再作成する
type Handle struct {
	dsn string

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewHandle は新しい Handle を作成する。接続はまだ行わない
func NewHandle(dsn string) *Handle {
	return &Handle{dsn: dsn}
}

// Configured は接続先が設定されているかを返す
func (h *Handle) Configured() bool {
	return h.dsn != ""
}

// Pool はコネクションプールを返す
// 接続先が未設定の場合は search.ErrIndexNotConfigured を返す
func (h *Handle) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if !h.Configured() {
		return nil, search.ErrIndexNotConfigured
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pool != nil {
		return h.pool, nil
	}

	pool, err := pgxpool.New(ctx, h.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// 接続テスト
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	h.pool = pool
	return pool, nil
}

// Reset は保持しているプールを破棄し、次回の Pool 呼び出しで再作成させる
func (h *Handle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pool != nil {
		h.pool.Close()
		h.pool = nil
	}
}

// Close はデータベース接続を閉じる
func (h *Handle) Close() {
	h.Reset()
}
