// Package analysis contains the pure scoring and clustering math used by the
// narrative detection pipeline. Everything here is deterministic and operates
// on plain float64 slices so it can be tested without a database.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// NearDuplicateThreshold is the cosine similarity above which a pair of
// embeddings counts as a near-duplicate.
const NearDuplicateThreshold = 0.95

// CosineSimilarity calculates cosine similarity between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return floats.Dot(a, b) / (normA * normB)
}

// SourceDiversity computes the normalized Shannon entropy of a source-label
// distribution, scaled to [0,1]. A single distinct source scores 0.
func SourceDiversity(sources []string) float64 {
	counts := make(map[string]int)
	for _, s := range sources {
		counts[s]++
	}

	if len(counts) <= 1 {
		return 0.0
	}

	total := float64(len(sources))
	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / total
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}

	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy == 0 {
		return 0.0
	}
	return entropy / maxEntropy
}

// Coherence returns the mean pairwise cosine similarity over the strict upper
// triangle of the similarity matrix. Clusters with fewer than two members are
// perfectly coherent by convention.
func Coherence(embeddings [][]float64) float64 {
	n := len(embeddings)
	if n < 2 {
		return 1.0
	}

	sum := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += CosineSimilarity(embeddings[i], embeddings[j])
			pairs++
		}
	}

	return sum / float64(pairs)
}

// NearDuplicateRate returns the fraction of embedding pairs whose cosine
// similarity exceeds NearDuplicateThreshold. Fewer than two members rate 0.
func NearDuplicateRate(embeddings [][]float64) float64 {
	n := len(embeddings)
	if n < 2 {
		return 0.0
	}

	high := 0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if CosineSimilarity(embeddings[i], embeddings[j]) > NearDuplicateThreshold {
				high++
			}
			pairs++
		}
	}

	return float64(high) / float64(pairs)
}

// Medoids selects up to max indices of the most central embeddings: the
// members with the smallest mean cosine distance to all others. When the
// cluster fits within max, every index is returned in input order.
func Medoids(embeddings [][]float64, max int) []int {
	n := len(embeddings)
	if max <= 0 {
		return nil
	}
	if n <= max {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	// Mean cosine distance of each member to all others
	meanDist := make([]float64, n)
	for i := 0; i < n; i++ {
		total := 0.0
		for j := 0; j < n; j++ {
			if i != j {
				total += 1.0 - CosineSimilarity(embeddings[i], embeddings[j])
			}
		}
		meanDist[i] = total / float64(n-1)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return meanDist[indices[a]] < meanDist[indices[b]]
	})

	return indices[:max]
}
