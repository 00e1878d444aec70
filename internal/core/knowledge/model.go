package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// KnowledgeBase はポートフォリオの静的ナレッジ全体を表す
// プロセス起動時に一度だけ読み込まれ、実行中は読み取り専用
type KnowledgeBase struct {
	Profile      Profile       `json:"profile" yaml:"profile"`
	Experiences  []Experience  `json:"experiences" yaml:"experiences"`
	Projects     []Project     `json:"projects" yaml:"projects"`
	Achievements []Achievement `json:"achievements" yaml:"achievements"`
	Strengths    []Strength    `json:"strengths" yaml:"strengths"`
}

// Profile は人物の概要
type Profile struct {
	Name      string      `json:"name" yaml:"name"`
	Summary   string      `json:"summary" yaml:"summary"`
	Location  string      `json:"location" yaml:"location"`
	Email     string      `json:"email,omitempty" yaml:"email,omitempty"`
	Education []Education `json:"education" yaml:"education"`
}

// Education は学歴1件
type Education struct {
	Degree      string `json:"degree" yaml:"degree"`
	Institution string `json:"institution" yaml:"institution"`
}

// Experience は職歴1件
type Experience struct {
	ID               string   `json:"id" yaml:"id"`
	Role             string   `json:"role" yaml:"role"`
	Company          string   `json:"company" yaml:"company"`
	Type             string   `json:"type" yaml:"type"` // full-time, fellowship など
	StartDate        string   `json:"startDate" yaml:"startDate"`
	EndDate          string   `json:"endDate" yaml:"endDate"`
	Description      string   `json:"description" yaml:"description"`
	Responsibilities []string `json:"responsibilities" yaml:"responsibilities"`
	Achievements     []string `json:"achievements" yaml:"achievements"`
	Technologies     []string `json:"technologies" yaml:"technologies"`
	Impact           []Impact `json:"impact" yaml:"impact"`
}

// Impact は職歴に紐づく定量的な成果
type Impact struct {
	Metric string `json:"metric" yaml:"metric"`
	Value  string `json:"value" yaml:"value"`
}

// Project はプロジェクト1件
type Project struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Status       string   `json:"status" yaml:"status"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	Role         string   `json:"role" yaml:"role"`
}

// Achievement は実績1件
type Achievement struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Type        string  `json:"type" yaml:"type"`
	Description string  `json:"description" yaml:"description"`
	Metrics     Metrics `json:"metrics" yaml:"metrics"`
}

// Strength はカテゴリ単位の強み
type Strength struct {
	Category string   `json:"category" yaml:"category"`
	Items    []string `json:"items" yaml:"items"`
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// CategorySlug は強みカテゴリを小文字化し、連続する空白を "-" に置き換える
// 強みチャンクのIDはこの値から導出される
func CategorySlug(category string) string {
	return whitespacePattern.ReplaceAllString(strings.ToLower(category), "-")
}

// Metric はキーと値のペア
type Metric struct {
	Key   string
	Value string
}

// Metrics は記述順を保持するキー・値リスト
// チャンク本文をバイト単位で再現可能にするため、map ではなく順序付きで保持する
type Metrics []Metric

// UnmarshalJSON はJSONオブジェクトをキーの出現順で読み込む
func (m *Metrics) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metrics must be a JSON object")
	}

	var out Metrics
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("metrics key must be a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode metric %q: %w", key, err)
		}
		out = append(out, Metric{Key: key, Value: scalarString(raw)})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out
	return nil
}

// MarshalJSON はキーの順序を保ったままJSONオブジェクトとして書き出す
func (m Metrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, metric := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(metric.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(metric.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML はYAMLマッピングを記述順で読み込む
func (m *Metrics) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("metrics must be a mapping (line %d)", node.Line)
	}

	out := make(Metrics, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, Metric{
			Key:   node.Content[i].Value,
			Value: node.Content[i+1].Value,
		})
	}

	*m = out
	return nil
}

// scalarString はJSONの値をチャンク本文に埋め込む文字列表現に変換する
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
