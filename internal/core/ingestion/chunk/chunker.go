package chunk

import (
	"fmt"
	"strings"

	"github.com/jinford/portfolio-chat/internal/core/knowledge"
)

// ProfileChunkID はプロフィール要約チャンクの固定ID
const ProfileChunkID = "profile-summary"

// Build はナレッジベースから1レコード1チャンクでチャンク列を生成する
// 順序は プロフィール要約 → 職歴 → プロジェクト → 実績 → 強み（いずれも記述順）
// 外部呼び出しを行わない純粋関数で、同じ入力に対して常に同じ結果を返す
func Build(kb *knowledge.KnowledgeBase) []Chunk {
	chunks := make([]Chunk, 0, 1+len(kb.Experiences)+len(kb.Projects)+len(kb.Achievements)+len(kb.Strengths))

	chunks = append(chunks, profileChunk(kb.Profile))
	for _, exp := range kb.Experiences {
		chunks = append(chunks, experienceChunk(exp))
	}
	for _, proj := range kb.Projects {
		chunks = append(chunks, projectChunk(proj))
	}
	for _, ach := range kb.Achievements {
		chunks = append(chunks, achievementChunk(ach))
	}
	for _, strength := range kb.Strengths {
		chunks = append(chunks, strengthChunk(strength))
	}

	return chunks
}

// ExperienceID は職歴レコードのチャンクIDを返す
func ExperienceID(id string) string { return "exp-" + id }

// ProjectID はプロジェクトレコードのチャンクIDを返す
func ProjectID(id string) string { return "proj-" + id }

// AchievementID は実績レコードのチャンクIDを返す
func AchievementID(id string) string { return "ach-" + id }

// StrengthID は強みカテゴリのチャンクIDを返す
func StrengthID(category string) string {
	return "strength-" + knowledge.CategorySlug(category)
}

func profileChunk(p knowledge.Profile) Chunk {
	education := make([]string, 0, len(p.Education))
	for _, e := range p.Education {
		education = append(education, fmt.Sprintf("%s from %s", e.Degree, e.Institution))
	}

	content := fmt.Sprintf("%s is a %s. Based in %s. Education: %s.",
		p.Name,
		p.Summary,
		p.Location,
		strings.Join(education, ", "),
	)

	return Chunk{
		ID:      ProfileChunkID,
		Content: content,
		Metadata: Metadata{
			Type:     TypeProfile,
			SourceID: "profile",
			Tags:     []string{"profile", "summary", "education"},
		},
	}
}

func experienceChunk(exp knowledge.Experience) Chunk {
	impact := make([]string, 0, len(exp.Impact))
	for _, i := range exp.Impact {
		impact = append(impact, fmt.Sprintf("%s: %s", i.Metric, i.Value))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at %s (%s - %s). %s", exp.Role, exp.Company, exp.StartDate, exp.EndDate, exp.Description)
	fmt.Fprintf(&sb, "\n\nResponsibilities: %s", strings.Join(exp.Responsibilities, ", "))
	fmt.Fprintf(&sb, "\n\nAchievements: %s", strings.Join(exp.Achievements, ", "))
	fmt.Fprintf(&sb, "\n\nTechnologies: %s", strings.Join(exp.Technologies, ", "))
	fmt.Fprintf(&sb, "\n\nImpact: %s", strings.Join(impact, ", "))

	tags := append([]string{"experience", exp.Type}, exp.Technologies...)

	return Chunk{
		ID:      ExperienceID(exp.ID),
		Content: sb.String(),
		Metadata: Metadata{
			Type:       TypeExperience,
			SourceID:   exp.ID,
			Tags:       tags,
			Experience: &ExperienceFields{Company: exp.Company, Role: exp.Role},
		},
	}
}

func projectChunk(proj knowledge.Project) Chunk {
	content := fmt.Sprintf("%s (%s). %s\n\nTechnologies: %s\n\nRole: %s",
		proj.Name,
		proj.Status,
		proj.Description,
		strings.Join(proj.Technologies, ", "),
		proj.Role,
	)

	tags := append([]string{"project", proj.Type, proj.Status}, proj.Technologies...)

	return Chunk{
		ID:      ProjectID(proj.ID),
		Content: content,
		Metadata: Metadata{
			Type:     TypeProject,
			SourceID: proj.ID,
			Tags:     tags,
			Project:  &ProjectFields{Name: proj.Name},
		},
	}
}

func achievementChunk(ach knowledge.Achievement) Chunk {
	metrics := make([]string, 0, len(ach.Metrics))
	for _, m := range ach.Metrics {
		metrics = append(metrics, fmt.Sprintf("%s: %s", m.Key, m.Value))
	}

	content := fmt.Sprintf("%s: %s\n\nMetrics: %s", ach.Title, ach.Description, strings.Join(metrics, ", "))

	return Chunk{
		ID:      AchievementID(ach.ID),
		Content: content,
		Metadata: Metadata{
			Type:        TypeAchievement,
			SourceID:    ach.ID,
			Tags:        []string{"achievement", ach.Type},
			Achievement: &AchievementFields{Title: ach.Title},
		},
	}
}

func strengthChunk(s knowledge.Strength) Chunk {
	return Chunk{
		ID:      StrengthID(s.Category),
		Content: fmt.Sprintf("%s: %s", s.Category, strings.Join(s.Items, ", ")),
		Metadata: Metadata{
			Type:     TypeStrength,
			SourceID: s.Category,
			Tags:     []string{"strength", strings.ToLower(s.Category)},
			Strength: &StrengthFields{Category: s.Category},
		},
	}
}
