package ask

import (
	"fmt"
	"strings"

	"github.com/jinford/portfolio-chat/internal/core/search"
)

// SubjectName は回答対象の人物名
const SubjectName = "Sri Nikitha"

// 分類ごとの定型応答（モデルを介さずそのまま返す）
const (
	personalFallback   = "I focus on professional experience and achievements. For personal questions, please reach out directly via email at t.srinikitha@gmail.com."
	salaryFallback     = "Compensation details are discussed later in the interview process. I can help you understand Sri Nikitha's experience and achievements that demonstrate her value."
	outOfScopeFallback = "I can only answer questions about Sri Nikitha's professional experience, projects, achievements, and role fit. Could you ask something about her work experience or projects instead?"
	defaultFallback    = "I don't have that information in the provided context. However, I can tell you about Sri Nikitha's professional experience and projects. Would that be helpful?"
)

// 生成失敗時の応答
const (
	generationErrorResponse = "I apologize, but I encountered an error processing your question. Please try again."
	emptyAnswerResponse     = "I apologize, but I encountered an error generating a response."
)

// FallbackResponse は分類に対応する定型応答を返す
func FallbackResponse(c Classification) string {
	switch c {
	case ClassPersonal:
		return personalFallback
	case ClassSalary:
		return salaryFallback
	case ClassOutOfScope:
		return outOfScopeFallback
	default:
		return defaultFallback
	}
}

// BuildClassificationPrompt は分類用のプロンプトを構築する
func BuildClassificationPrompt(question string) string {
	var sb strings.Builder

	sb.WriteString("Classify the following question into one of these categories:\n")
	fmt.Fprintf(&sb, "- \"ALLOWED\": Question is about %s's professional experience, projects, achievements, or role fit\n", SubjectName)
	sb.WriteString("- \"PERSONAL\": Question is about personal life, family, health, or private matters\n")
	sb.WriteString("- \"SALARY\": Question is about compensation, salary, or financial details\n")
	sb.WriteString("- \"OUT_OF_SCOPE\": Question is about other people, unrelated topics, opinions, or general knowledge\n")
	sb.WriteString("- \"JOB_FIT\": Question includes a job description and asks for fit analysis\n\n")
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString("Respond with ONLY the category name.")

	return sb.String()
}

// BuildAnswerPrompt はRAG回答生成用のユーザープロンプトを構築する
func BuildAnswerPrompt(question string, chunks []search.RetrievedChunk, jobDescription string) string {
	contexts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		contexts = append(contexts, fmt.Sprintf("[Context %d]\n%s\n", i+1, c.Content))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nContext:\n%s", question, strings.Join(contexts, "\n\n"))

	if jobDescription != "" {
		fmt.Fprintf(&sb, "\n\nJob Description:\n%s\n\nPlease analyze how %s's experience matches this job description.", jobDescription, SubjectName)
	}

	return sb.String()
}

// SystemPrompt は回答生成時のペルソナ指示
const SystemPrompt = `You are a professional AI assistant helping recruiters evaluate Sri Nikitha T's fit for product management and technical roles. Provide accurate, concise, and relevant information based ONLY on the provided context documents.

ROLE: You act as a Talent Advocate representing Sri Nikitha T to recruiters and hiring managers. Show how her path from IIT engineer to Liberal Arts scholar to Founding Product Manager prepares her for high-stakes PM and technical roles.

PROFESSIONAL CONTEXT:
- Studied Metallurgical Engineering at IIT Kharagpur, then Liberal Arts & Leadership at Ashoka University, where she built her systems-thinking lens: how a feature affects the whole ecosystem.
- Founding PM at Facets.cloud: took the product from zero to scale in DevTools and Cloud Infrastructure.
- Growth PM at Mason: led GTM strategy and new product initiatives.
- Innovation Fellow with the Government of Telangana: selected from thousands; laid the foundation for the state's Rural Innovation Policy.
- NRB Bearings: sustainable process optimisation and root-cause waste analysis in manufacturing.
- Domain expertise: Cloud Infrastructure, DevTools, AI/ML, No-code, Frugal Science.

RESPONSE GUIDELINES:
- Tone: professional, insightful and human. Do not sound robotic.
- Emphasise founding-PM skills: turning ambiguity into a scalable product.
- Use metrics from the context where available.

STRICT LIMITATIONS:
- Salary: say "Compensation is best discussed directly with Sri Nikitha during the interview phase."
- Out of scope: refuse questions about other candidates, politics, or private medical matters.
- Never invent facts. If a metric or technology is not in the context, say: "I don't have that specific detail in the context provided, but her background in [Related Field] suggests she would pick it up quickly."

Remember: you represent Sri Nikitha professionally. Accuracy and honesty are paramount.`
