package compress

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// SentenceRanker orders sentences by importance and returns the top max.
// Rankers may fail; the compressor tries each registered ranker in order and
// uses the first that succeeds.
type SentenceRanker interface {
	Name() string
	Rank(sentences []string, profile *LanguageProfile, max int) ([]string, error)
}

const (
	pagerankDamping    = 0.85
	pagerankIterations = 50
	pagerankTolerance  = 1e-6
)

// graphRanker scores sentences by centrality in a similarity graph: nodes are
// sentences, edges are weighted by TF-IDF cosine similarity, and scores come
// from PageRank power iteration.
type graphRanker struct{}

func (graphRanker) Name() string { return "graph-centrality" }

func (graphRanker) Rank(sentences []string, profile *LanguageProfile, max int) ([]string, error) {
	n := len(sentences)
	model := fitTFIDF(sentences, profile)
	if model == nil {
		return nil, fmt.Errorf("no rankable terms in %d sentences", n)
	}

	// Similarity matrix doubles as the (unnormalized) adjacency matrix
	adj := mat.NewDense(n, n, nil)
	hasEdges := false
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := cosine(model.vectors[i], model.vectors[j])
			if sim > 0 {
				adj.Set(i, j, sim)
				adj.Set(j, i, sim)
				hasEdges = true
			}
		}
	}
	if !hasEdges {
		return nil, fmt.Errorf("sentence similarity graph has no edges")
	}

	scores := pagerank(adj)
	return topSentences(sentences, scores, max), nil
}

// pagerank runs damped power iteration over the weighted adjacency matrix.
func pagerank(adj *mat.Dense) []float64 {
	n, _ := adj.Dims()

	// Column-stochastic transition matrix; dangling nodes distribute uniformly
	trans := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		colSum := 0.0
		for i := 0; i < n; i++ {
			colSum += adj.At(i, j)
		}
		for i := 0; i < n; i++ {
			if colSum > 0 {
				trans.Set(i, j, adj.At(i, j)/colSum)
			} else {
				trans.Set(i, j, 1.0/float64(n))
			}
		}
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	base := (1 - pagerankDamping) / float64(n)
	for iter := 0; iter < pagerankIterations; iter++ {
		next := make([]float64, n)
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += trans.At(i, j) * rank[j]
			}
			next[i] = base + pagerankDamping*sum
		}

		delta := 0.0
		for i := range rank {
			d := next[i] - rank[i]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		rank = next
		if delta < pagerankTolerance {
			break
		}
	}

	return rank
}

// weightRanker scores each sentence by its summed TF-IDF weight.
type weightRanker struct{}

func (weightRanker) Name() string { return "tfidf-weight" }

func (weightRanker) Rank(sentences []string, profile *LanguageProfile, max int) ([]string, error) {
	model := fitTFIDF(sentences, profile)
	if model == nil {
		return nil, fmt.Errorf("no rankable terms in %d sentences", len(sentences))
	}

	scores := make([]float64, len(sentences))
	for i, vec := range model.vectors {
		for _, w := range vec {
			scores[i] += w
		}
	}

	return topSentences(sentences, scores, max), nil
}

// positionalRanker keeps input order and truncates. It never fails and
// terminates the fallback chain.
type positionalRanker struct{}

func (positionalRanker) Name() string { return "positional" }

func (positionalRanker) Rank(sentences []string, _ *LanguageProfile, max int) ([]string, error) {
	if len(sentences) <= max {
		return sentences, nil
	}
	return sentences[:max], nil
}

// topSentences returns the max highest-scoring sentences, highest first,
// breaking score ties by input position.
func topSentences(sentences []string, scores []float64, max int) []string {
	indices := make([]int, len(sentences))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if max > len(indices) {
		max = len(indices)
	}
	top := make([]string, max)
	for i := 0; i < max; i++ {
		top[i] = sentences[indices[i]]
	}
	return top
}

func cosine(a, b []float64) float64 {
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	// fitTFIDF vectors are already L2-normalized
	return dot
}
