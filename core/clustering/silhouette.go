package clustering

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Silhouette averages (b-a)/max(a,b) over all assigned points, where a is the
// mean distance to the point's own cluster and b the smallest mean distance
// to another cluster. Points in singleton clusters score 0 and unassigned
// points (-1) are ignored. With fewer than two clusters the score is 0.
// The score is a diagnostic only.
func Silhouette(vectors [][]float64, assignments []int) float64 {
	clusters := map[int][]int{}
	for i, c := range assignments {
		if c >= 0 {
			clusters[c] = append(clusters[c], i)
		}
	}
	if len(clusters) < 2 {
		return 0
	}

	total, count := 0.0, 0
	for i, c := range assignments {
		if c < 0 {
			continue
		}
		count++

		own := clusters[c]
		if len(own) == 1 {
			continue
		}

		a := meanDistance(vectors, i, own) * float64(len(own)) / float64(len(own)-1)
		b := math.Inf(1)
		for other, members := range clusters {
			if other == c {
				continue
			}
			b = math.Min(b, meanDistance(vectors, i, members))
		}

		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}

	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// meanDistance is the mean distance from point i to members, counting i itself
// as zero if it is a member.
func meanDistance(vectors [][]float64, i int, members []int) float64 {
	sum := 0.0
	for _, j := range members {
		if j != i {
			sum += floats.Distance(vectors[i], vectors[j], 2)
		}
	}
	return sum / float64(len(members))
}
