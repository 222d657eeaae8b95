package reduction

import (
	"math"
	"testing"

	"github.com/siherrmann/causemap/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func spreadWithOneFarPoint() [][]float64 {
	coords := make([][]float64, 0, 10)
	for i := 0; i < 9; i++ {
		coords = append(coords, []float64{1 + 0.1*float64(i), 0})
	}
	// the rest have median distance 1.4
	return append(coords, []float64{140, 0})
}

func TestDetectOutliers(t *testing.T) {
	config := model.DefaultOutlierConfig()

	t.Run("Flag a point far outside the rest", func(t *testing.T) {
		flags := DetectOutliers(spreadWithOneFarPoint(), config)
		require.Len(t, flags, 10)
		assert.True(t, flags[9], "Expected the far point to be flagged")
		assert.Equal(t, 1, CountOutliers(flags), "Expected only the far point to be flagged")
	})

	t.Run("Give the same flags on repeated runs", func(t *testing.T) {
		coords := spreadWithOneFarPoint()
		assert.Equal(t, DetectOutliers(coords, config), DetectOutliers(coords, config))
	})

	t.Run("Flag nothing when the IQR is zero", func(t *testing.T) {
		coords := [][]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {math.Sqrt2 / 2, math.Sqrt2 / 2}}
		flags := DetectOutliers(coords, config)
		assert.Equal(t, 0, CountOutliers(flags))
	})

	t.Run("Handle empty input", func(t *testing.T) {
		assert.Empty(t, DetectOutliers(nil, config))
	})

	t.Run("A smaller multiplier flags more points", func(t *testing.T) {
		coords := [][]float64{{1}, {1.1}, {1.2}, {1.3}, {1.4}, {1.5}, {1.6}, {2.4}}
		strict := config
		strict.IQRMultiplier = 0.5
		assert.GreaterOrEqual(t, CountOutliers(DetectOutliers(coords, strict)), CountOutliers(DetectOutliers(coords, config)))
	})
}

func TestScaleLayout(t *testing.T) {
	reducer := model.DefaultReducerConfig()
	outlier := model.DefaultOutlierConfig()

	t.Run("Scale from non outliers and dampen outliers", func(t *testing.T) {
		coords := spreadWithOneFarPoint()
		flags := DetectOutliers(coords, outlier)
		layout := ScaleLayout(coords, flags, reducer, outlier)

		assert.InDelta(t, 200/0.8, layout.Scale, 1e-9, "Expected scale from the non outlier range")
		assert.InDelta(t, 140*layout.Scale*0.3, layout.Positions[9][0], 1e-6, "Expected outlier to be dampened")

		raw := floats.Norm(coords[9], 2) * layout.Scale
		assert.Less(t, floats.Norm(layout.Positions[9], 2), raw, "Expected displayed magnitude below the undampened position")
	})

	t.Run("Non outliers span the visual range", func(t *testing.T) {
		coords := [][]float64{{-1, 0}, {1, 0.5}, {0, -0.5}}
		layout := ScaleLayout(coords, make([]bool, 3), reducer, outlier)
		assert.InDelta(t, 200.0, layout.Positions[1][0]-layout.Positions[0][0], 1e-9)
	})

	t.Run("Use the default spread when the range is zero", func(t *testing.T) {
		coords := [][]float64{{2, 2}, {2, 2}}
		layout := ScaleLayout(coords, make([]bool, 2), reducer, outlier)
		assert.Equal(t, reducer.DefaultSpread, layout.Scale)
		assert.Equal(t, []float64{100, 100}, layout.Positions[0])
	})

	t.Run("Use the default spread when everything is an outlier", func(t *testing.T) {
		coords := [][]float64{{1, 1}, {3, 3}}
		layout := ScaleLayout(coords, []bool{true, true}, reducer, outlier)
		assert.Equal(t, reducer.DefaultSpread, layout.Scale)
	})
}

func TestDotSize(t *testing.T) {
	config := model.DefaultDotSizeConfig()

	t.Run("No stars get the minimum size", func(t *testing.T) {
		assert.Equal(t, 4.0, DotSize(0, config))
	})

	t.Run("Grow with log stars", func(t *testing.T) {
		assert.InDelta(t, 7.0, DotSize(9, config), 1e-9)
		assert.Less(t, DotSize(10, config), DotSize(1000, config))
	})

	t.Run("Cap at the maximum size", func(t *testing.T) {
		assert.Equal(t, 20.0, DotSize(100000000, config))
	})
}
