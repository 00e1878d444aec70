package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/portfolio-chat/internal/core/ingestion/chunk"
	"github.com/jinford/portfolio-chat/internal/core/knowledge"
)

// previewLength はチャンク本文のプレビュー文字数
const previewLength = 60

// ChunkListAction はナレッジベースから導出されるチャンク一覧を表示するコマンドのアクション
// 外部サービスには接続しない
func ChunkListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	cfg, _, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	kb, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		return err
	}

	chunks := chunk.Build(kb)
	renderChunksTable(chunks)
	fmt.Printf("\n合計: %d チャンク\n", len(chunks))

	return nil
}

// renderChunksTable はテーブル形式でチャンク一覧を表示する
func renderChunksTable(chunks []chunk.Chunk) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Type", "Source", "Content")

	for _, c := range chunks {
		table.Append(
			c.ID,
			string(c.Metadata.Type),
			c.Metadata.Identifier(),
			preview(c.Content),
		)
	}

	table.Render()
}

func preview(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(flat) <= previewLength {
		return flat
	}
	return string([]rune(flat)[:previewLength]) + "..."
}
