package embedding

import (
	"fmt"
	"math"
	"sort"

	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Vectors of different length are an error; a zero vector has similarity 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, helper.NewError("cosine similarity", fmt.Errorf("%w: %d vs %d", helper.ErrDimensionMismatch, len(a), len(b)))
	}

	x, y := ToFloat64(a), ToFloat64(b)
	norm := floats.Norm(x, 2) * floats.Norm(y, 2)
	if norm == 0 {
		return 0, nil
	}

	return math.Max(-1, math.Min(1, floats.Dot(x, y)/norm)), nil
}

// FindSimilar scores the non-missing candidates against target and returns the
// topK best, highest similarity first.
func FindSimilar(target []float32, candidates []model.Embedding, topK int) ([]model.Similarity, error) {
	scored := make([]model.Similarity, 0, len(candidates))
	for _, c := range candidates {
		if c.IsMissing() {
			continue
		}
		score, err := CosineSimilarity(target, c.Vector)
		if err != nil {
			return nil, helper.NewError("find similar", err)
		}
		scored = append(scored, model.Similarity{ID: c.ID, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK >= 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// ToFloat64 widens an embedding for numeric work.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
