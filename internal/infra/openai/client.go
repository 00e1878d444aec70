package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/portfolio-chat/internal/core/ask"
)

const (
	// DefaultBaseURL は Gemini の OpenAI 互換エンドポイント
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	// DefaultModel はリクエストでモデルが指定されなかった場合のモデル
	DefaultModel = "gemini-1.5-flash"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("LLM API key not set: please set GEMINI_API_KEY environment variable")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrEmptyCompletion は候補が1件も返らなかった場合のエラー
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// Client は OpenAI 互換 API を使用した LLM クライアント実装
type Client struct {
	client      openai.Client
	model       string
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

type clientOptions struct {
	baseURL     string
	model       string
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	httpClient  *http.Client
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithBaseURL は接続先を上書きする
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithModel はリクエストにモデルが無い場合のモデルを設定する
func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout はAPIコールのタイムアウトを設定する
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithRateLimitRetries はレート制限（429）時のリトライ回数とバックオフを設定する
func WithRateLimitRetries(maxRetries int, base, max time.Duration) ClientOption {
	return func(o *clientOptions) {
		if maxRetries >= 0 {
			o.maxRetries = maxRetries
		}
		if base > 0 {
			o.baseBackoff = base
		}
		if max > 0 {
			o.maxBackoff = max
		}
	}
}

// WithHTTPClient は HTTP クライアントを差し替える
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		baseBackoff: BaseBackoff,
		maxBackoff:  MaxBackoff,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		client:      openai.NewClient(requestOptions(apiKey, options.baseURL, options.httpClient)...),
		model:       options.model,
		timeout:     options.timeout,
		maxRetries:  options.maxRetries,
		baseBackoff: options.baseBackoff,
		maxBackoff:  options.maxBackoff,
	}, nil
}

// requestOptions は SDK 共通の接続オプションを組み立てる
// リトライは Client 側で制御するため SDK のリトライは無効にする
func requestOptions(apiKey, baseURL string, httpClient *http.Client) []option.RequestOption {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}
	return reqOpts
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// GenerateCompletion はチャット補完APIでテキストを生成する
func (c *Client) GenerateCompletion(ctx context.Context, req ask.CompletionRequest) (ask.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: buildMessages(req),
	}
	if temperature, ok := req.Temperature.Get(); ok {
		params.Temperature = openai.Float(temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ask.CompletionResponse{}, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return ask.CompletionResponse{}, fmt.Errorf("LLM API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return ask.CompletionResponse{}, ErrEmptyCompletion
		}

		return ask.CompletionResponse{
			Content:    completion.Choices[0].Message.Content,
			TokensUsed: int(completion.Usage.TotalTokens),
			Model:      string(completion.Model),
		}, nil
	}

	return ask.CompletionResponse{}, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func buildMessages(req ask.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	return append(messages, openai.UserMessage(req.Prompt))
}

func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseBackoff
	if d > c.maxBackoff {
		d = c.maxBackoff
	}
	return d
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}

	return false
}

// インターフェース実装の確認
var _ ask.LLMClient = (*Client)(nil)
