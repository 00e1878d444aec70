package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/portfolio-chat/internal/platform/config"
	"github.com/jinford/portfolio-chat/internal/platform/container"
	"github.com/jinford/portfolio-chat/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer
}

// loadConfig は設定を読み込み、設定に従ってロガーを初期化する
func loadConfig(envFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	appLogger := logger.New(logger.FromSettings(cfg.Log.Level, cfg.Log.Format))
	return cfg, appLogger, nil
}

// NewAppContext は設定を読み込んで検証し、AppContext を作成する
func NewAppContext(ctx context.Context, envFile string, validate func(*config.Config) error) (*AppContext, error) {
	cfg, appLogger, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("設定が不足しています: %w", err)
		}
	}

	cont, err := container.NewContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}
