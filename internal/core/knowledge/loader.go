package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidKnowledgeBase はナレッジベースの内容が不正な場合のエラー
var ErrInvalidKnowledgeBase = errors.New("invalid knowledge base")

// Load はナレッジベースを読み込み、検証して返す
// 拡張子が .yaml / .yml の場合はYAML、それ以外はJSONとして解釈する
func Load(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}

	kb, err := Parse(data, formatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", path, err)
	}

	return kb, nil
}

// Parse はバイト列からナレッジベースを生成する
func Parse(data []byte, format string) (*KnowledgeBase, error) {
	var kb KnowledgeBase

	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &kb); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &kb); err != nil {
			return nil, err
		}
	}

	if err := kb.Validate(); err != nil {
		return nil, err
	}

	return &kb, nil
}

// Validate はチャンクIDが一意に導出できることを検証する
func (kb *KnowledgeBase) Validate() error {
	if strings.TrimSpace(kb.Profile.Summary) == "" {
		return fmt.Errorf("%w: profile.summary is required", ErrInvalidKnowledgeBase)
	}

	if err := uniqueIDs("experiences", len(kb.Experiences), func(i int) string { return kb.Experiences[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("projects", len(kb.Projects), func(i int) string { return kb.Projects[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("achievements", len(kb.Achievements), func(i int) string { return kb.Achievements[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("strengths", len(kb.Strengths), strengthKey(kb.Strengths)); err != nil {
		return err
	}

	return nil
}

// strengthKey は強みカテゴリを重複判定用のキーに変換する
// 空のカテゴリは空文字を返し、uniqueIDs で空IDとして扱われる
func strengthKey(strengths []Strength) func(int) string {
	return func(i int) string {
		category := strengths[i].Category
		if strings.TrimSpace(category) == "" {
			return ""
		}
		return CategorySlug(category)
	}
}

func uniqueIDs(kind string, n int, idAt func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := strings.TrimSpace(idAt(i))
		if id == "" {
			return fmt.Errorf("%w: %s[%d] has an empty id", ErrInvalidKnowledgeBase, kind, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidKnowledgeBase, kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
