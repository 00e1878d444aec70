package ask

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type stubLLM struct {
	content  string
	err      error
	requests []CompletionRequest
}

func (s *stubLLM) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return CompletionResponse{}, s.err
	}
	return CompletionResponse{Content: s.content, TokensUsed: 42, Model: req.Model}, nil
}

// wordCounter は空白区切りの語数をトークン数とみなす
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func (wordCounter) Truncate(text string, maxTokens int) string {
	fields := strings.Fields(text)
	if len(fields) <= maxTokens {
		return text
	}
	return strings.Join(fields[:maxTokens], " ")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
