package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/portfolio-chat/internal/core/ingestion/chunk"
)

type mockIndex struct {
	describeErr error
	upsertErr   error
	failOnCall  int
	upserts     [][]IndexedChunk
}

func (m *mockIndex) Describe(ctx context.Context) (IndexStats, error) {
	if m.describeErr != nil {
		return IndexStats{}, m.describeErr
	}
	return IndexStats{Name: "portfolio-chunks", Dimension: 3}, nil
}

func (m *mockIndex) Upsert(ctx context.Context, chunks []IndexedChunk) error {
	if m.upsertErr != nil && len(m.upserts)+1 == m.failOnCall {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, chunks)
	return nil
}

type mockEmbedder struct {
	fail  map[string]bool
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.fail[text] {
		return nil, errors.New("embedding api error")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func makeChunks(n int) []chunk.Chunk {
	chunks := make([]chunk.Chunk, n)
	for i := range chunks {
		chunks[i] = chunk.Chunk{
			ID:       fmt.Sprintf("ach-%d", i),
			Content:  fmt.Sprintf("content %d", i),
			Metadata: chunk.Metadata{Type: chunk.TypeAchievement, SourceID: fmt.Sprintf("%d", i)},
		}
	}
	return chunks
}

func newTestService(index IndexWriter, embedder Embedder, pacer Pacer, batchSize int) *Service {
	return NewService(index, embedder,
		WithBatchSize(batchSize),
		WithPacer(pacer),
		WithIngestLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestService_Run_Batches(t *testing.T) {
	index := &mockIndex{}
	embedder := &mockEmbedder{}
	pacer := &countingPacer{}

	report, err := newTestService(index, embedder, pacer, 2).Run(context.Background(), makeChunks(5))
	require.NoError(t, err)

	assert.Equal(t, 5, report.Chunks)
	assert.Equal(t, 5, report.Stored)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, "portfolio-chunks", report.Index.Name)

	require.Len(t, index.upserts, 3)
	assert.Len(t, index.upserts[0], 2)
	assert.Len(t, index.upserts[2], 1)
	assert.Equal(t, "ach-4", index.upserts[2][0].ID)
	assert.Equal(t, chunk.TypeAchievement, index.upserts[2][0].Metadata.Type)
	assert.Equal(t, 5, embedder.calls)
	assert.Equal(t, 5, pacer.waits)
}

func TestService_Run_SkipsFailedEmbeddings(t *testing.T) {
	index := &mockIndex{}
	embedder := &mockEmbedder{fail: map[string]bool{"content 1": true}}

	report, err := newTestService(index, embedder, &countingPacer{}, 100).Run(context.Background(), makeChunks(3))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, index.upserts, 1)
	ids := []string{index.upserts[0][0].ID, index.upserts[0][1].ID}
	assert.Equal(t, []string{"ach-0", "ach-2"}, ids)
}

func TestService_Run_AbortsOnFirstUpsertFailure(t *testing.T) {
	index := &mockIndex{upsertErr: errors.New("connection reset"), failOnCall: 2}
	embedder := &mockEmbedder{}

	report, err := newTestService(index, embedder, &countingPacer{}, 2).Run(context.Background(), makeChunks(6))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Batches)
	// 3バッチ目は処理されない
	assert.Equal(t, 4, embedder.calls)
}

type sleepingPacer struct {
	d time.Duration
}

func (p sleepingPacer) Wait(ctx context.Context) error {
	time.Sleep(p.d)
	return ctx.Err()
}

func TestService_Run_ReportsDurationOnAbort(t *testing.T) {
	index := &mockIndex{upsertErr: errors.New("connection reset"), failOnCall: 1}

	report, err := newTestService(index, &mockEmbedder{}, sleepingPacer{d: time.Millisecond}, 2).Run(context.Background(), makeChunks(2))
	require.Error(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 0, report.Stored)
	assert.GreaterOrEqual(t, report.Duration, 2*time.Millisecond)
}

func TestService_Run_MissingIndex(t *testing.T) {
	index := &mockIndex{describeErr: ErrIndexMissing}
	embedder := &mockEmbedder{}

	report, err := newTestService(index, embedder, &countingPacer{}, 2).Run(context.Background(), makeChunks(3))

	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrIndexMissing)
	assert.Equal(t, 0, embedder.calls)
	assert.Empty(t, index.upserts)
}

func TestService_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	index := &mockIndex{}
	_, err := newTestService(index, &mockEmbedder{}, &countingPacer{}, 2).Run(ctx, makeChunks(3))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, index.upserts)
}

func TestRatePacer_Spacing(t *testing.T) {
	pacer := NewRatePacer(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		require.NoError(t, pacer.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestRatePacer_Disabled(t *testing.T) {
	pacer := NewRatePacer(0)
	start := time.Now()
	for range 100 {
		require.NoError(t, pacer.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
