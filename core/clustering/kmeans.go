package clustering

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"gonum.org/v1/gonum/floats"
)

// Group is one surviving cluster. Members are indices into the clustered vectors.
type Group struct {
	Index    int
	Centroid []float64
	Members  []int
}

// Result is a partition of the input: every index is either a member of
// exactly one group or listed in Unclustered. Assignments holds the group
// index per input, -1 for unclustered.
type Result struct {
	K           int
	Groups      []Group
	Assignments []int
	Unclustered []int
	Silhouette  float64
	Iterations  int
}

// SelectK picks k = clamp(floor(sqrt(n/2)), 2, maxK) and lowers it so that
// k*minMembers <= n. It returns 0 when not even one viable cluster fits.
func SelectK(n, maxK, minMembers int) int {
	if minMembers < 1 {
		minMembers = 1
	}
	if n < minMembers || n == 0 {
		return 0
	}

	k := max(int(math.Floor(math.Sqrt(float64(n)/2))), 2)
	if maxK > 0 {
		k = min(k, maxK)
	}
	return min(k, n/minMembers)
}

// Cluster partitions vectors with k-means and drops groups smaller than
// MinMembers. Populations too small for any group come back fully
// unclustered rather than as an error.
func Cluster(vectors [][]float64, config model.ClusterConfig) (*Result, error) {
	return ClusterK(vectors, SelectK(len(vectors), config.MaxK, config.MinMembers), config)
}

// ClusterK is Cluster with a fixed k. A k below one leaves every vector unclustered.
func ClusterK(vectors [][]float64, k int, config model.ClusterConfig) (*Result, error) {
	n := len(vectors)
	result := &Result{Assignments: unassigned(n)}
	if n == 0 {
		return result, nil
	}
	if err := checkWidths(vectors); err != nil {
		return nil, helper.NewError("cluster", err)
	}

	k = max(min(k, n), 0)
	result.K = k
	if k == 0 {
		result.Unclustered = allIndices(n)
		return result, nil
	}

	assignments, centroids, iterations := KMeans(vectors, k, config.MaxIterations, config.Seed)
	result.Iterations = iterations

	members := make([][]int, k)
	for i, c := range assignments {
		members[c] = append(members[c], i)
	}

	for c := range members {
		if len(members[c]) < config.MinMembers || len(members[c]) == 0 {
			result.Unclustered = append(result.Unclustered, members[c]...)
			continue
		}
		group := Group{
			Index:    len(result.Groups),
			Centroid: centroids[c],
			Members:  members[c],
		}
		for _, i := range group.Members {
			result.Assignments[i] = group.Index
		}
		result.Groups = append(result.Groups, group)
	}
	sort.Ints(result.Unclustered)

	result.Silhouette = Silhouette(vectors, result.Assignments)
	return result, nil
}

// KMeans runs Lloyd iterations from a k-means++ seeding and stops when no
// assignment changes or after maxIterations. At least one assignment pass
// always runs. A cluster that loses all its points keeps its previous centroid.
func KMeans(vectors [][]float64, k, maxIterations int, seed uint64) ([]int, [][]float64, int) {
	n := len(vectors)
	k = min(k, n)
	maxIterations = max(maxIterations, 1)
	rng := rand.New(rand.NewPCG(seed, seed^0x5bd1e995))
	centroids := seedCentroids(vectors, k, rng)

	assignments := unassigned(n)
	iterations := 0
	for iterations < maxIterations {
		iterations++

		changed := false
		for i, v := range vectors {
			best := nearest(v, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i, c := range assignments {
			if sums[c] == nil {
				sums[c] = make([]float64, len(vectors[i]))
			}
			floats.Add(sums[c], vectors[i])
			counts[c]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), sums[c])
				centroids[c] = sums[c]
			}
		}
	}

	return assignments, centroids, iterations
}

// seedCentroids is the k-means++ seeding: each next centroid is drawn with
// probability proportional to its squared distance from the closest chosen one.
func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(vectors)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(vectors[rng.IntN(n)]))

	distances := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i, v := range vectors {
			d := floats.Distance(v, centroids[nearest(v, centroids)], 2)
			distances[i] = d * d
			total += distances[i]
		}

		// every point already sits on a centroid
		if total == 0 {
			centroids = append(centroids, clone(vectors[len(centroids)%n]))
			continue
		}

		target := rng.Float64() * total
		chosen := n - 1
		for i, d := range distances {
			target -= d
			if target <= 0 && d > 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(vectors[chosen]))
	}

	return centroids
}

func nearest(v []float64, centroids [][]float64) int {
	best, bestDistance := 0, math.Inf(1)
	for c, centroid := range centroids {
		d := floats.Distance(v, centroid, 2)
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}

func checkWidths(vectors [][]float64) error {
	width := len(vectors[0])
	for i, v := range vectors {
		if len(v) != width {
			return fmt.Errorf("%w: vector %d has %d values, want %d", helper.ErrDimensionMismatch, i, len(v), width)
		}
	}
	return nil
}

func unassigned(n int) []int {
	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	return assignments
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
