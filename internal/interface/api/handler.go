package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/portfolio-chat/internal/core/ask"
)

// maxBodyBytes はリクエストボディの上限
const maxBodyBytes = 1 << 20

// クライアントへ返すエラーメッセージ（内部のエラー内容は含めない）
const (
	msgMethodNotAllowed  = "Method not allowed"
	msgQuestionRequired  = "Question is required"
	msgInternalError     = "Internal server error"
	msgInternalErrorHint = "Something went wrong while answering your question. Please try again."
	headerRequestID      = "X-Request-ID"
)

// ChatService は質問応答のユースケース
type ChatService interface {
	Chat(ctx context.Context, params ask.ChatParams) (*ask.ChatResult, error)
}

// chatRequest はリクエストボディ
// question 以外の任意項目は型が想定と異なっても無視する
type chatRequest struct {
	Question            string          `json:"question"`
	JobDescription      json.RawMessage `json:"jobDescription,omitempty"`
	ConversationHistory json.RawMessage `json:"conversationHistory,omitempty"`
}

// historyTurn は会話履歴の1ターン（各項目は文字列の場合のみ採用する）
type historyTurn struct {
	Role      json.RawMessage `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// chatResponse は成功時のレスポンスボディ
type chatResponse struct {
	Response       string   `json:"response"`
	Classification string   `json:"classification"`
	Sources        []string `json:"sources,omitempty"`
}

// errorResponse は失敗時のレスポンスボディ
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handler はチャットAPIのHTTPハンドラ
type Handler struct {
	chat   ChatService
	logger *slog.Logger
}

// HandlerOption は Handler のオプション
type HandlerOption func(*Handler)

// WithHandlerLogger はロガーを設定する
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler は新しい Handler を作成する
func NewHandler(chat ChatService, opts ...HandlerOption) *Handler {
	h := &Handler{
		chat:   chat,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Routes はルーティング済みの http.Handler を返す
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/portfolio-chat", h.handleChat)
	mux.HandleFunc("/portfolio-chat", h.handleChat)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	requestID := uuid.NewString()
	w.Header().Set(headerRequestID, requestID)
	logger := h.logger.With("request_id", requestID)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Info("rejecting malformed request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgQuestionRequired})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgQuestionRequired})
		return
	}

	ctx := ask.ContextWithLogger(r.Context(), logger)
	result, err := h.chat.Chat(ctx, req.toParams())
	if err != nil {
		if errors.Is(err, ask.ErrInvalidQuestion) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgQuestionRequired})
			return
		}
		logger.Error("chat request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   msgInternalError,
			Message: msgInternalErrorHint,
		})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       result.Response,
		Classification: string(result.Classification),
		Sources:        result.Sources,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// toParams はリクエストを ask.ChatParams に変換する
// 空白のみの求人票は指定なしとして扱う
func (req chatRequest) toParams() ask.ChatParams {
	params := ask.ChatParams{Question: req.Question}

	if jd, ok := rawString(req.JobDescription); ok && strings.TrimSpace(jd) != "" {
		params.JobDescription = mo.Some(jd)
	}

	var turns []json.RawMessage
	if err := json.Unmarshal(req.ConversationHistory, &turns); err != nil {
		return params
	}
	for _, raw := range turns {
		var turn historyTurn
		if err := json.Unmarshal(raw, &turn); err != nil {
			continue
		}
		role, _ := rawString(turn.Role)
		content, _ := rawString(turn.Content)
		timestamp, _ := rawString(turn.Timestamp)
		params.History = append(params.History, ask.ChatTurn{
			Role:      ask.Role(role),
			Content:   content,
			Timestamp: parseTimestamp(timestamp),
		})
	}

	return params
}

// rawString は JSON 文字列であればその値を返す
func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func parseTimestamp(value string) mo.Option[time.Time] {
	if value == "" {
		return mo.None[time.Time]()
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return mo.None[time.Time]()
	}
	return mo.Some(t)
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
