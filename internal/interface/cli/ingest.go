package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/portfolio-chat/internal/core/ingestion"
	"github.com/jinford/portfolio-chat/internal/platform/config"
)

// IngestAction はナレッジベースをベクトルインデックスへ投入するコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 認証情報と接続先が無ければ何もせずに失敗する
	appCtx, err := NewAppContext(ctx, envFile, (*config.Config).ValidateForIngest)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	chunks := appCtx.Container.Chunks()
	slog.Info("インジェストを開始します",
		"knowledgeBase", appCtx.Config.KnowledgeBasePath,
		"chunks", len(chunks),
	)

	report, err := appCtx.Container.IngestService.Run(ctx, chunks)
	if report != nil {
		renderIngestReport(report)
	}
	if err != nil {
		return fmt.Errorf("インジェストに失敗しました: %w", err)
	}

	return nil
}

// IndexCreateAction はベクトルインデックスを作成するコマンドのアクション
func IndexCreateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile, (*config.Config).ValidateForIngest)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	index := appCtx.Container.VectorIndex
	if err := index.CreateIndex(ctx); err != nil {
		return err
	}

	stats, err := index.Describe(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("インデックス %s を作成しました（次元: %d, 件数: %d）\n", stats.Name, stats.Dimension, stats.Count)
	return nil
}

// renderIngestReport はインジェスト結果をテーブル形式で表示する
func renderIngestReport(report *ingestion.Report) {
	fmt.Println("\n=== インジェスト結果 ===")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("項目", "値")

	table.Append("インデックス", report.Index.Name)
	table.Append("既存件数", fmt.Sprintf("%d", report.Index.Count))
	table.Append("チャンク数", fmt.Sprintf("%d", report.Chunks))
	table.Append("保存件数", fmt.Sprintf("%d", report.Stored))
	table.Append("スキップ件数", fmt.Sprintf("%d", report.Skipped))
	table.Append("バッチ数", fmt.Sprintf("%d", report.Batches))
	table.Append("所要時間", report.Duration.String())

	table.Render()
}
