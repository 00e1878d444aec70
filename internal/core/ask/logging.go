package ask

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// ContextWithLogger はリクエスト単位のロガーをコンテキストに格納する
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// loggerFrom はコンテキストのロガーを返す。無ければ fallback を返す
func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
