package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// It is 0 when either vector has zero norm. Vectors of different length
// are rejected with a *domain.DimensionMismatchError.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.DimensionMismatchError{Expected: len(a), Got: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Rank scores candidates against query and returns the topK best, highest
// first. Equal scores keep candidate order.
func Rank(query []float32, candidates []domain.EmbeddingRecord, topK int) ([]domain.ScoredRecord, error) {
	if topK <= 0 || len(candidates) == 0 {
		return []domain.ScoredRecord{}, nil
	}

	scored := make([]domain.ScoredRecord, len(candidates))
	for i, rec := range candidates {
		sim, err := CosineSimilarity(query, rec.Embedding)
		if err != nil {
			return nil, err
		}
		scored[i] = domain.ScoredRecord{Record: rec, Similarity: sim}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}
