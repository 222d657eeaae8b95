package reduction

import (
	"math"

	"github.com/siherrmann/causemap/model"
)

// Layout is the display placement of a set of projected points.
type Layout struct {
	Positions [][]float64
	Scale     float64
}

// ScaleLayout stretches coords so the non-outlier points span VisualRange and
// pulls outliers toward the origin by the dampening factor. The range is taken
// over non-outliers only; DefaultSpread is used when it cannot be measured.
func ScaleLayout(coords [][]float64, outliers []bool, reducer model.ReducerConfig, outlier model.OutlierConfig) *Layout {
	maxRange := 0.0
	if len(coords) > 0 {
		for axis := range coords[0] {
			lo, hi := math.Inf(1), math.Inf(-1)
			for i, c := range coords {
				if i < len(outliers) && outliers[i] {
					continue
				}
				lo = math.Min(lo, c[axis])
				hi = math.Max(hi, c[axis])
			}
			if hi >= lo {
				maxRange = math.Max(maxRange, hi-lo)
			}
		}
	}

	scale := reducer.DefaultSpread
	if maxRange > 0 {
		scale = reducer.VisualRange / maxRange
	}

	positions := make([][]float64, len(coords))
	for i, c := range coords {
		factor := scale
		if i < len(outliers) && outliers[i] {
			factor *= outlier.Dampening
		}
		positions[i] = make([]float64, len(c))
		for j, x := range c {
			positions[i][j] = x * factor
		}
	}

	return &Layout{Positions: positions, Scale: scale}
}

// DotSize maps stars to a display size that grows with log10(stars+1) and is
// capped at config.Max.
func DotSize(stars int, config model.DotSizeConfig) float64 {
	if stars < 0 {
		stars = 0
	}
	return math.Min(config.Max, config.Min+math.Log10(float64(stars)+1)*config.Scale)
}
