package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/portfolio-chat/internal/core/ingestion/chunk"
)

// DefaultBatchSize は1回の Upsert に含めるチャンク数
const DefaultBatchSize = 100

// Service はチャンクをEmbeddingしてベクトルインデックスへ保存する
type Service struct {
	index     IndexWriter
	embedder  Embedder
	pacer     Pacer
	batchSize int
	logger    *slog.Logger
}

// ServiceOption は Service のオプション
type ServiceOption func(*Service)

// WithIngestLogger はロガーを設定する
func WithIngestLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBatchSize はバッチサイズを上書きする
func WithBatchSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithPacer はEmbedding呼び出しの間隔制御を差し替える
func WithPacer(pacer Pacer) ServiceOption {
	return func(s *Service) {
		if pacer != nil {
			s.pacer = pacer
		}
	}
}

// NewService は新しい Service を作成する
func NewService(index IndexWriter, embedder Embedder, opts ...ServiceOption) *Service {
	s := &Service{
		index:     index,
		embedder:  embedder,
		pacer:     NewRatePacer(DefaultEmbedInterval),
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run はチャンクをバッチ単位でインジェストする
//   - インデックスが存在しなければ何も書き込まずにエラーを返す
//   - Embeddingに失敗したチャンクはログを出してスキップする
//   - Upsert の失敗は最初の1回で処理全体を中断する
func (s *Service) Run(ctx context.Context, chunks []chunk.Chunk) (*Report, error) {
	startTime := time.Now()

	stats, err := s.index.Describe(ctx)
	if err != nil {
		if errors.Is(err, ErrIndexMissing) {
			return nil, fmt.Errorf("インデックスが存在しません。先に作成してください: %w", err)
		}
		return nil, fmt.Errorf("インデックスの確認に失敗: %w", err)
	}

	s.logger.Info("インジェストを開始",
		"index", stats.Name,
		"existing", stats.Count,
		"chunks", len(chunks),
		"batchSize", s.batchSize,
	)

	report := &Report{Index: stats, Chunks: len(chunks)}
	// 途中で中断した場合も所要時間を残す
	defer func() {
		report.Duration = time.Since(startTime)
	}()

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batchNo := start/s.batchSize + 1

		indexed, skipped, err := s.embedBatch(ctx, chunks[start:end])
		if err != nil {
			return report, err
		}
		report.Skipped += skipped

		if len(indexed) == 0 {
			s.logger.Warn("バッチ内に保存可能なチャンクがありません", "batch", batchNo)
			continue
		}

		if err := s.index.Upsert(ctx, indexed); err != nil {
			return report, fmt.Errorf("バッチ %d の保存に失敗: %w", batchNo, err)
		}
		report.Stored += len(indexed)
		report.Batches++

		s.logger.Info("バッチを保存",
			"batch", batchNo,
			"stored", len(indexed),
			"skipped", skipped,
		)
	}

	report.Duration = time.Since(startTime)

	s.logger.Info("インジェストが完了",
		"stored", report.Stored,
		"skipped", report.Skipped,
		"batches", report.Batches,
		"duration", report.Duration,
	)

	return report, nil
}

// embedBatch はバッチ内のチャンクを順番にEmbeddingする
// 返すエラーはコンテキストのキャンセルのみ
func (s *Service) embedBatch(ctx context.Context, batch []chunk.Chunk) ([]IndexedChunk, int, error) {
	indexed := make([]IndexedChunk, 0, len(batch))
	skipped := 0

	for _, c := range batch {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, skipped, fmt.Errorf("インジェストが中断されました: %w", err)
		}

		vector, err := s.embedder.Embed(ctx, c.Content)
		if err == nil && len(vector) == 0 {
			err = errors.New("empty embedding")
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, skipped, fmt.Errorf("インジェストが中断されました: %w", ctx.Err())
			}
			s.logger.Warn("Embeddingの生成に失敗したためチャンクをスキップ",
				"chunkID", c.ID,
				"error", err,
			)
			skipped++
			continue
		}

		indexed = append(indexed, IndexedChunk{
			ID:       c.ID,
			Vector:   vector,
			Content:  c.Content,
			Metadata: c.Metadata,
		})
	}

	return indexed, skipped, nil
}
