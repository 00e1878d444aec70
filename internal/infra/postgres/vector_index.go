package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/portfolio-chat/internal/core/ingestion"
	"github.com/jinford/portfolio-chat/internal/core/search"
)

const (
	// DefaultIndexName はインデックス（テーブル）名の既定値
	DefaultIndexName = "portfolio-chunks"

	// undefinedTable は存在しないテーブルを参照したときの SQLSTATE
	undefinedTable = "42P01"
)

var (
	// ErrIndexNotFound はインデックスのテーブルが存在しない場合のエラー
	ErrIndexNotFound = fmt.Errorf("vector index table not found: %w", ingestion.ErrIndexMissing)

	// ErrDimensionMismatch はテーブルのベクトル次元が設定と異なる場合のエラー
	ErrDimensionMismatch = errors.New("vector index dimension mismatch")
)

// VectorIndex は pgvector のテーブルをベクトルインデックスとして扱う
// search.VectorIndex と ingestion.IndexWriter を実装する
type VectorIndex struct {
	handle    *Handle
	name      string
	table     string // サニタイズ済みの識別子
	dimension int
	logger    *slog.Logger
}

// VectorIndexOption は VectorIndex のオプション
type VectorIndexOption func(*VectorIndex)

// WithIndexLogger はロガーを設定する
func WithIndexLogger(logger *slog.Logger) VectorIndexOption {
	return func(v *VectorIndex) {
		v.logger = logger
	}
}

// NewVectorIndex は新しい VectorIndex を作成する
func NewVectorIndex(handle *Handle, name string, dimension int, opts ...VectorIndexOption) *VectorIndex {
	if name == "" {
		name = DefaultIndexName
	}
	v := &VectorIndex{
		handle:    handle,
		name:      name,
		table:     pgx.Identifier{name}.Sanitize(),
		dimension: dimension,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Name はインデックス名を返す
func (v *VectorIndex) Name() string {
	return v.name
}

// Query はコサイン類似度の高い順に topK 件を返す
func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]search.RetrievedChunk, error) {
	pool, err := v.handle.Pool(ctx)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
FROM %s
ORDER BY embedding <=> $1
LIMIT $2`, v.table)

	rows, err := pool.Query(ctx, sql, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, v.wrapError("failed to query vector index", err)
	}
	defer rows.Close()

	results := make([]search.RetrievedChunk, 0, topK)
	for rows.Next() {
		var (
			rc       search.RetrievedChunk
			metadata []byte
		)
		if err := rows.Scan(&rc.ID, &rc.Content, &metadata, &rc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan vector index row: %w", err)
		}
		if err := json.Unmarshal(metadata, &rc.Metadata); err != nil {
			v.logger.Warn("skipping row with invalid metadata", "id", rc.ID, "error", err)
			continue
		}
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, v.wrapError("failed to read vector index rows", err)
	}

	return results, nil
}

// Upsert はチャンクを1トランザクションでまとめて書き込む
// 同じIDのレコードは置き換える
func (v *VectorIndex) Upsert(ctx context.Context, chunks []ingestion.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	pool, err := v.handle.Pool(ctx)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding,
    updated_at = EXCLUDED.updated_at`, v.table)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		if v.dimension > 0 && len(c.Vector) != v.dimension {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d", ErrDimensionMismatch, c.ID, len(c.Vector), v.dimension)
		}
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", c.ID, err)
		}
		batch.Queue(sql, c.ID, c.Content, string(metadata), pgvector.NewVector(c.Vector))
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		// 同一インデックスへの並行インジェストを直列化する
		if err := acquireXactLock(ctx, tx, lockID("ingest", v.name)); err != nil {
			return err
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return v.wrapError("failed to upsert chunks", err)
	}
	return nil
}

// Describe はインデックスの存在・次元・件数を返す
func (v *VectorIndex) Describe(ctx context.Context) (ingestion.IndexStats, error) {
	stats := ingestion.IndexStats{Name: v.name}

	pool, err := v.handle.Pool(ctx)
	if err != nil {
		return stats, err
	}

	var regclass *string
	if err := pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, v.table).Scan(&regclass); err != nil {
		return stats, fmt.Errorf("failed to look up vector index: %w", err)
	}
	if regclass == nil {
		return stats, fmt.Errorf("%w: %s", ErrIndexNotFound, v.name)
	}

	// vector 型の atttypmod は次元数
	err = pool.QueryRow(ctx, `SELECT atttypmod FROM pg_attribute
WHERE attrelid = $1::regclass AND attname = 'embedding'`, v.table).Scan(&stats.Dimension)
	if err != nil {
		return stats, fmt.Errorf("failed to read vector index dimension: %w", err)
	}
	if v.dimension > 0 && stats.Dimension != v.dimension {
		return stats, fmt.Errorf("%w: index has %d, configured %d", ErrDimensionMismatch, stats.Dimension, v.dimension)
	}

	if err := pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, v.table)).Scan(&stats.Count); err != nil {
		return stats, fmt.Errorf("failed to count vector index rows: %w", err)
	}

	return stats, nil
}

// CreateIndex は拡張・テーブル・HNSWインデックスを作成する（既に存在する場合は何もしない）
func (v *VectorIndex) CreateIndex(ctx context.Context) error {
	if v.dimension <= 0 {
		return fmt.Errorf("vector index dimension must be positive: %d", v.dimension)
	}

	pool, err := v.handle.Pool(ctx)
	if err != nil {
		return err
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id         text PRIMARY KEY,
    content    text NOT NULL,
    metadata   jsonb NOT NULL,
    embedding  vector(%d) NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`, v.table, v.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{v.name + "_embedding_idx"}.Sanitize(), v.table),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create vector index: %w", err)
		}
	}

	v.logger.Info("vector index ready", "index", v.name, "dimension", v.dimension)
	return nil
}

// wrapError はテーブル未作成のエラーを ErrIndexNotFound に変換する
func (v *VectorIndex) wrapError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%s: %w: %s", msg, ErrIndexNotFound, v.name)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// インターフェース実装の確認
var (
	_ search.VectorIndex    = (*VectorIndex)(nil)
	_ ingestion.IndexWriter = (*VectorIndex)(nil)
)
