package reduction

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reduction holds projected coordinates (N x Dimensions) and the fraction of
// total variance captured by each retained component.
type Reduction struct {
	Coordinates       [][]float64
	ExplainedVariance []float64
	Method            model.ReductionMethod
	Dimensions        int
}

// Reduce projects vectors onto their first principal components.
//
// With config.Scale the columns are standardized first; if any column has
// (near) zero variance the reduction falls back to centering only. If the
// decomposition fails or the data has no variance at all, points are placed
// randomly so a visualization can still be drawn. Fewer than two vectors
// cannot be reduced and return ErrDegenerateInput.
func Reduce(vectors [][]float64, dimensions int, config model.ReducerConfig) (*Reduction, error) {
	n := len(vectors)
	if n < 2 {
		return nil, helper.NewError("reduce", fmt.Errorf("%w: need at least 2 vectors, got %d", helper.ErrDegenerateInput, n))
	}
	width := len(vectors[0])
	if width == 0 {
		return nil, helper.NewError("reduce", fmt.Errorf("%w: vectors are empty", helper.ErrDegenerateInput))
	}
	for i, v := range vectors {
		if len(v) != width {
			return nil, helper.NewError("reduce", fmt.Errorf("%w: vector %d has %d values, want %d", helper.ErrDimensionMismatch, i, len(v), width))
		}
	}

	if dimensions <= 0 {
		dimensions = config.TargetDimensions
	}
	d := min(dimensions, n, width)
	if d < 1 {
		return nil, helper.NewError("reduce", fmt.Errorf("%w: target dimensions must be positive, got %d", helper.ErrDegenerateInput, dimensions))
	}

	data := mat.NewDense(n, width, nil)
	for i, v := range vectors {
		data.SetRow(i, v)
	}

	method := model.ReductionCentered
	if config.Scale && standardize(data, config.ZeroVarianceEpsilon) {
		method = model.ReductionScaled
	} else {
		center(data)
	}

	var svd mat.SVD
	if !svd.Factorize(data, mat.SVDThin) {
		return randomReduction(n, d, config.Seed), nil
	}

	values := svd.Values(nil)
	total := 0.0
	for _, s := range values {
		total += s * s
	}
	if total <= config.ZeroVarianceEpsilon {
		return randomReduction(n, d, config.Seed), nil
	}

	var v mat.Dense
	svd.VTo(&v)

	var projected mat.Dense
	projected.Mul(data, v.Slice(0, width, 0, d))

	coordinates := make([][]float64, n)
	for i := range coordinates {
		coordinates[i] = mat.Row(nil, i, &projected)
	}

	variance := make([]float64, d)
	for i := range variance {
		variance[i] = values[i] * values[i] / total
	}

	return &Reduction{
		Coordinates:       coordinates,
		ExplainedVariance: variance,
		Method:            method,
		Dimensions:        d,
	}, nil
}

// standardize centers and scales every column to unit variance. It leaves
// data untouched and returns false when a column's deviation is below epsilon.
func standardize(data *mat.Dense, epsilon float64) bool {
	n, width := data.Dims()
	means := make([]float64, width)
	stds := make([]float64, width)
	col := make([]float64, n)

	for j := 0; j < width; j++ {
		mat.Col(col, j, data)
		means[j], stds[j] = stat.MeanStdDev(col, nil)
		if math.IsNaN(stds[j]) || stds[j] < epsilon {
			return false
		}
	}

	data.Apply(func(i, j int, x float64) float64 {
		return (x - means[j]) / stds[j]
	}, data)
	return true
}

func center(data *mat.Dense) {
	n, width := data.Dims()
	means := make([]float64, width)
	col := make([]float64, n)

	for j := 0; j < width; j++ {
		mat.Col(col, j, data)
		means[j] = stat.Mean(col, nil)
	}

	data.Apply(func(i, j int, x float64) float64 {
		return x - means[j]
	}, data)
}

func randomReduction(n, d int, seed uint64) *Reduction {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	coordinates := make([][]float64, n)
	for i := range coordinates {
		coordinates[i] = make([]float64, d)
		for j := range coordinates[i] {
			coordinates[i][j] = rng.Float64() - 0.5
		}
	}

	return &Reduction{
		Coordinates:       coordinates,
		ExplainedVariance: make([]float64, d),
		Method:            model.ReductionRandom,
		Dimensions:        d,
	}
}

// Pad returns values zero-filled (or cut) to exactly width entries.
func Pad(values []float64, width int) []float64 {
	padded := make([]float64, width)
	copy(padded, values)
	return padded
}

// Columns returns the first k columns of every row, zero-filling short rows.
func Columns(rows [][]float64, k int) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = Pad(row, k)
	}
	return out
}
