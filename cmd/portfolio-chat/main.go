package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/portfolio-chat/internal/interface/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "portfolio-chat",
		Usage: "採用担当者向けポートフォリオ Q&A（RAG）サービス",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "HTTP APIサーバを起動",
				Flags: []cli.Flag{
					envFlag(),
					&cli.IntFlag{
						Name:  "port",
						Usage: "待ち受けポート（未指定時は SERVER_PORT）",
					},
				},
				Action: appcli.ServerStartAction,
			},
			{
				Name:      "ask",
				Usage:     "質問に回答する",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:  "job-description",
						Usage: "求人票テキスト（JOB_FIT 判定時に使用）",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:   "ingest",
				Usage:  "ナレッジベースをベクトルインデックスへ投入",
				Flags:  []cli.Flag{envFlag()},
				Action: appcli.IngestAction,
			},
			{
				Name:  "index",
				Usage: "ベクトルインデックス管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "ベクトルインデックスを作成",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.IndexCreateAction,
					},
				},
			},
			{
				Name:  "chunks",
				Usage: "チャンク管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "ナレッジベースから導出されるチャンク一覧を表示",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.ChunkListAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}
