package vectorstore

import (
	"math"
	"sort"

	"docchat/internal/domain"
)

// Search scores every indexed chunk against the query vector and returns the
// top k results sorted by descending cosine similarity. Ties break on lower
// chunk index so output is deterministic. Result length is min(k, index
// size); k <= 0 yields no results.
func Search(index *domain.VectorIndex, query []float32, k int) []domain.SearchResult {
	if index == nil || k <= 0 {
		return nil
	}
	results := make([]domain.SearchResult, 0, index.Len())
	for i := 0; i < index.Len(); i++ {
		ec := index.At(i)
		results = append(results, domain.SearchResult{
			Chunk: ec.Chunk,
			Score: CosineSimilarity(query, ec.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}

// CosineSimilarity computes dot(a,b)/(|a|*|b|) in float64. A zero-magnitude
// vector scores 0 against everything rather than dividing by zero, and
// mismatched lengths also score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
