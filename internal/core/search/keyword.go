package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jinford/portfolio-chat/internal/core/ingestion/chunk"
	"github.com/jinford/portfolio-chat/internal/core/knowledge"
)

// minKeywordLength より長い語だけをクエリ語として扱う
const minKeywordLength = 2

// KeywordRetriever はベクトルインデックスが使えないときの縮退用検索
// 呼び出しのたびにナレッジベースからチャンクを再構築する（コーパスは数十件程度）
type KeywordRetriever struct {
	kb *knowledge.KnowledgeBase
}

// NewKeywordRetriever は新しい KeywordRetriever を作成する
func NewKeywordRetriever(kb *knowledge.KnowledgeBase) *KeywordRetriever {
	return &KeywordRetriever{kb: kb}
}

// Retrieve はクエリ語の部分一致率でチャンクを採点し、上位 topK 件を返す
// スコア0のチャンクは除外し、同点は採点順（プロフィール要約が最後）を維持する
func (r *KeywordRetriever) Retrieve(query string, topK int) []RetrievedChunk {
	if topK <= 0 {
		topK = DefaultTopK
	}

	words := QueryWords(query)
	if len(words) == 0 {
		return []RetrievedChunk{}
	}

	results := make([]RetrievedChunk, 0)
	for _, c := range keywordCandidates(r.kb) {
		score := KeywordScore(c.Content, words)
		if score <= 0 {
			continue
		}
		results = append(results, RetrievedChunk{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
			Score:    score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// keywordCandidates は採点順のチャンク列を返す
// プロフィール要約は最後に置き、同点時は他のレコードを優先する
func keywordCandidates(kb *knowledge.KnowledgeBase) []chunk.Chunk {
	built := chunk.Build(kb)
	ordered := make([]chunk.Chunk, 0, len(built))
	var profiles []chunk.Chunk
	for _, c := range built {
		if c.Metadata.Type == chunk.TypeProfile {
			profiles = append(profiles, c)
			continue
		}
		ordered = append(ordered, c)
	}
	return append(ordered, profiles...)
}

// QueryWords はクエリを小文字化して空白で分割し、3文字以上の語を返す
func QueryWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > minKeywordLength {
			words = append(words, f)
		}
	}
	return words
}

// KeywordScore は text に部分文字列として含まれるクエリ語の割合を返す
func KeywordScore(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	matched := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}
