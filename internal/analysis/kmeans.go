package analysis

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	kmeansMaxIterations = 100
	kmeansTolerance     = 1e-4
)

// KMeansResult holds the cluster assignment for each input vector and the
// final centroid of each cluster. A cluster left empty by the assignment
// step keeps its last centroid and simply has no members.
type KMeansResult struct {
	Labels    []int
	Centroids [][]float64
}

// Members returns the input indices assigned to the given cluster label.
func (r *KMeansResult) Members(label int) []int {
	var members []int
	for i, l := range r.Labels {
		if l == label {
			members = append(members, i)
		}
	}
	return members
}

// KMeans partitions vectors into k clusters using k-means++ seeding and
// Lloyd iterations. The same seed and input ordering always produce the
// same assignment, which is what makes window re-runs idempotent.
func KMeans(vectors [][]float64, k int, seed int64) (*KMeansResult, error) {
	n := len(vectors)
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot form %d clusters from %d vectors", k, n)
	}

	dim := len(vectors[0])
	data := mat.NewDense(n, dim, nil)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		data.SetRow(i, v)
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(data, k, rng)

	labels := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		newLabels := assign(data, centroids)

		converged := true
		for i := range labels {
			if labels[i] != newLabels[i] {
				converged = false
				break
			}
		}
		labels = newLabels
		if converged && iter > 0 {
			break
		}

		newCentroids := recompute(data, labels, centroids)
		change := centroidShift(centroids, newCentroids)
		centroids = newCentroids
		if change < kmeansTolerance {
			break
		}
	}

	out := make([][]float64, k)
	for i := 0; i < k; i++ {
		row := make([]float64, dim)
		copy(row, centroids.RawRowView(i))
		out[i] = row
	}

	return &KMeansResult{Labels: labels, Centroids: out}, nil
}

// seedCentroids implements k-means++ initialization with the supplied RNG.
func seedCentroids(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centroids := mat.NewDense(k, d, nil)

	centroids.SetRow(0, data.RawRowView(rng.Intn(n)))

	for i := 1; i < k; i++ {
		weights := make([]float64, n)
		totalWeight := 0.0

		for j := 0; j < n; j++ {
			point := data.RawRowView(j)
			minDist := math.Inf(1)
			for c := 0; c < i; c++ {
				dist := squaredDistance(point, centroids.RawRowView(c))
				if dist < minDist {
					minDist = dist
				}
			}
			weights[j] = minDist
			totalWeight += minDist
		}

		if totalWeight == 0 {
			// All remaining points coincide with chosen centroids
			centroids.SetRow(i, data.RawRowView(rng.Intn(n)))
			continue
		}

		target := rng.Float64() * totalWeight
		cum := 0.0
		for j, w := range weights {
			cum += w
			if cum >= target {
				centroids.SetRow(i, data.RawRowView(j))
				break
			}
		}
	}

	return centroids
}

// assign maps each point to its nearest centroid by squared Euclidean
// distance, breaking ties toward the lower cluster index.
func assign(data, centroids *mat.Dense) []int {
	n, _ := data.Dims()
	k, _ := centroids.Dims()
	labels := make([]int, n)

	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		best := 0
		bestDist := math.Inf(1)
		for j := 0; j < k; j++ {
			dist := squaredDistance(point, centroids.RawRowView(j))
			if dist < bestDist {
				bestDist = dist
				best = j
			}
		}
		labels[i] = best
	}

	return labels
}

// recompute averages each cluster's members into a new centroid. Empty
// clusters keep their previous centroid.
func recompute(data *mat.Dense, labels []int, prev *mat.Dense) *mat.Dense {
	n, d := data.Dims()
	k, _ := prev.Dims()

	centroids := mat.NewDense(k, d, nil)
	counts := make([]int, k)

	for i := 0; i < n; i++ {
		label := labels[i]
		point := data.RawRowView(i)
		for j := 0; j < d; j++ {
			centroids.Set(label, j, centroids.At(label, j)+point[j])
		}
		counts[label]++
	}

	for i := 0; i < k; i++ {
		if counts[i] == 0 {
			centroids.SetRow(i, prev.RawRowView(i))
			continue
		}
		for j := 0; j < d; j++ {
			centroids.Set(i, j, centroids.At(i, j)/float64(counts[i]))
		}
	}

	return centroids
}

func centroidShift(old, new *mat.Dense) float64 {
	k, _ := old.Dims()
	total := 0.0
	for i := 0; i < k; i++ {
		total += math.Sqrt(squaredDistance(old.RawRowView(i), new.RawRowView(i)))
	}
	return total / float64(k)
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
