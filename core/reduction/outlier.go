package reduction

import (
	"sort"

	"github.com/siherrmann/causemap/model"
	"gonum.org/v1/gonum/floats"
)

// DetectOutliers flags points whose distance from the origin lies outside
// [Q1 - k*IQR, Q3 + k*IQR]. Coordinates are expected to be centered, as PCA
// output is. A zero IQR flags nothing.
func DetectOutliers(coords [][]float64, config model.OutlierConfig) []bool {
	n := len(coords)
	flags := make([]bool, n)
	if n == 0 {
		return flags
	}

	distances := make([]float64, n)
	for i, c := range coords {
		distances[i] = floats.Norm(c, 2)
	}

	sorted := append([]float64(nil), distances...)
	sort.Float64s(sorted)

	q1 := sorted[int(float64(n)*0.25)]
	q3 := sorted[int(float64(n)*0.75)]
	iqr := q3 - q1
	if iqr <= 0 {
		return flags
	}

	lower := q1 - config.IQRMultiplier*iqr
	upper := q3 + config.IQRMultiplier*iqr
	for i, d := range distances {
		flags[i] = d < lower || d > upper
	}
	return flags
}

// CountOutliers returns how many flags are set.
func CountOutliers(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
