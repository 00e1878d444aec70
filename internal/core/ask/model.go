package ask

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/portfolio-chat/internal/core/search"
)

var (
	// ErrInvalidQuestion は質問文が空の場合のエラー（クライアントエラー）
	ErrInvalidQuestion = errors.New("question is required")

	// ErrEmbedding は質問文のEmbedding生成に失敗した場合のエラー（リクエストは終了する）
	ErrEmbedding = errors.New("embedding failure")

	// ErrPipelinePanic はパイプライン内で予期しないpanicが発生した場合のエラー
	ErrPipelinePanic = errors.New("unexpected pipeline failure")
)

// Classification は質問の分類ラベル
type Classification string

const (
	ClassAllowed    Classification = "ALLOWED"
	ClassPersonal   Classification = "PERSONAL"
	ClassSalary     Classification = "SALARY"
	ClassOutOfScope Classification = "OUT_OF_SCOPE"
	ClassJobFit     Classification = "JOB_FIT"
)

// Classifications は分類ラベルの全集合
var Classifications = []Classification{
	ClassAllowed,
	ClassPersonal,
	ClassSalary,
	ClassOutOfScope,
	ClassJobFit,
}

// Restricted は生成モデルに到達させてはならない分類かどうかを返す
func (c Classification) Restricted() bool {
	switch c {
	case ClassPersonal, ClassSalary, ClassOutOfScope:
		return true
	default:
		return false
	}
}

// ParseClassification はモデル出力を分類ラベルに変換する
// 前後の空白・引用符・末尾のピリオドを除去し、大文字化して比較する
func ParseClassification(text string) (Classification, bool) {
	normalized := strings.ToUpper(strings.Trim(strings.TrimSpace(text), "\"'`."))
	for _, c := range Classifications {
		if normalized == string(c) {
			return c, true
		}
	}
	return "", false
}

// Role は会話ターンの話者
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn はクライアント側が保持する会話の1ターン
type ChatTurn struct {
	Role      Role
	Content   string
	Timestamp mo.Option[time.Time]
}

// ChatParams は質問応答のパラメータを表す
type ChatParams struct {
	Question       string
	JobDescription mo.Option[string]
	// History は受け付けるが、回答生成のプロンプトには含めない
	History []ChatTurn
}

// ChatResult は質問応答の結果を表す
type ChatResult struct {
	Response       string
	Classification Classification
	Sources        []string
	Strategy       mo.Option[search.Strategy] // 検索を行わなかった場合は None
}
