package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/portfolio-chat/internal/core/ask"
	"github.com/jinford/portfolio-chat/internal/platform/config"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	// フラグの取得
	envFile := cmd.String("env")
	jobDescription := cmd.String("job-description")

	// 質問文の取得
	question := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile, (*config.Config).ValidateForServe)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	params := ask.ChatParams{Question: question}
	if strings.TrimSpace(jobDescription) != "" {
		params.JobDescription = mo.Some(jobDescription)
	}

	result, err := appCtx.Container.AskService.Chat(ctx, params)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// 結果出力
	fmt.Println(result.Response)
	fmt.Printf("\n分類: %s\n", result.Classification)
	if strategy, ok := result.Strategy.Get(); ok {
		fmt.Printf("検索方式: %s\n", strategy)
	}

	if len(result.Sources) > 0 {
		fmt.Println("\n--- 参照ソース ---")
		for i, source := range result.Sources {
			fmt.Printf("[%d] %s\n", i+1, source)
		}
	}

	return nil
}
