package chunk

import (
	"encoding/json"
	"fmt"
)

// Type はチャンクの元になったレコード種別
type Type string

const (
	TypeProfile     Type = "profile"
	TypeExperience  Type = "experience"
	TypeProject     Type = "project"
	TypeAchievement Type = "achievement"
	TypeStrength    Type = "strength"
)

// Valid は既知の種別かどうかを返す
func (t Type) Valid() bool {
	switch t {
	case TypeProfile, TypeExperience, TypeProject, TypeAchievement, TypeStrength:
		return true
	default:
		return false
	}
}

// Chunk は1レコードから導出される検索単位
type Chunk struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Metadata はチャンク種別をタグとするメタデータ
// Type に対応する variant フィールドのみが非nilになる
type Metadata struct {
	Type     Type
	SourceID string
	Tags     []string

	Experience  *ExperienceFields
	Project     *ProjectFields
	Achievement *AchievementFields
	Strength    *StrengthFields
}

// ExperienceFields は職歴チャンク固有の項目
type ExperienceFields struct {
	Company string
	Role    string
}

// ProjectFields はプロジェクトチャンク固有の項目
type ProjectFields struct {
	Name string
}

// AchievementFields は実績チャンク固有の項目
type AchievementFields struct {
	Title string
}

// StrengthFields は強みチャンク固有の項目
type StrengthFields struct {
	Category string
}

// Company は職歴チャンクの会社名を返す（それ以外は空文字）
func (m Metadata) Company() string {
	if m.Experience == nil {
		return ""
	}
	return m.Experience.Company
}

// Name はプロジェクトチャンクの名前を返す（それ以外は空文字）
func (m Metadata) Name() string {
	if m.Project == nil {
		return ""
	}
	return m.Project.Name
}

// Identifier は回答の sources に載せる識別子を返す
// SourceID を優先し、無ければプロジェクト名を使う
func (m Metadata) Identifier() string {
	if m.SourceID != "" {
		return m.SourceID
	}
	return m.Name()
}

// wireMetadata はベクトルインデックスに保存するフラットな表現
type wireMetadata struct {
	Type     Type     `json:"type"`
	SourceID string   `json:"sourceId,omitempty"`
	Tags     []string `json:"tags"`
	Company  string   `json:"company,omitempty"`
	Role     string   `json:"role,omitempty"`
	Name     string   `json:"name,omitempty"`
	Title    string   `json:"title,omitempty"`
	Category string   `json:"category,omitempty"`
}

// MarshalJSON は variant をフラットなJSONオブジェクトに展開する
func (m Metadata) MarshalJSON() ([]byte, error) {
	w := wireMetadata{
		Type:     m.Type,
		SourceID: m.SourceID,
		Tags:     m.Tags,
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}

	switch {
	case m.Experience != nil:
		w.Company = m.Experience.Company
		w.Role = m.Experience.Role
	case m.Project != nil:
		w.Name = m.Project.Name
	case m.Achievement != nil:
		w.Title = m.Achievement.Title
	case m.Strength != nil:
		w.Category = m.Strength.Category
	}

	return json.Marshal(w)
}

// UnmarshalJSON は type に応じて variant を復元する
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var w wireMetadata
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("unknown chunk type %q", w.Type)
	}

	out := Metadata{
		Type:     w.Type,
		SourceID: w.SourceID,
		Tags:     w.Tags,
	}

	switch w.Type {
	case TypeExperience:
		out.Experience = &ExperienceFields{Company: w.Company, Role: w.Role}
	case TypeProject:
		out.Project = &ProjectFields{Name: w.Name}
	case TypeAchievement:
		out.Achievement = &AchievementFields{Title: w.Title}
	case TypeStrength:
		out.Strength = &StrengthFields{Category: w.Category}
	}

	*m = out
	return nil
}
