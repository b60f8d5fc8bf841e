// Package ranker orders candidate documents by link rank.
package ranker

import (
	"sort"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Rank scores each candidate with rankOf and sorts by descending score.
// Equal scores keep candidate order. A positive limit truncates the result.
func Rank(candidates []string, rankOf func(docID string) float64, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(candidates))
	for _, id := range candidates {
		result = append(result, ScoredDoc{DocID: id, Score: rankOf(id)})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// IDs returns the document ids of docs in order.
func IDs(docs []ScoredDoc) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	return ids
}
