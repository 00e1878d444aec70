package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/portfolio-chat/internal/interface/api"
	"github.com/jinford/portfolio-chat/internal/platform/config"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile, (*config.Config).ValidateForServe)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	// --port が指定されていなければ SERVER_PORT を使う
	port := appCtx.Config.Server.Port
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}

	logger := appCtx.Logger()
	handler := api.NewHandler(appCtx.Container.AskService, api.WithHandlerLogger(logger))
	server := api.NewServer(fmt.Sprintf(":%d", port), handler.Routes(), logger)

	return server.Run(ctx)
}
