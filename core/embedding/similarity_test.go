package embedding

import (
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("Vector with itself is one", func(t *testing.T) {
		v := []float32{0.3, -1.2, 4.5, 0.01}
		score, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("Opposite vectors are minus one", func(t *testing.T) {
		score, err := CosineSimilarity([]float32{1, 2}, []float32{-1, -2})
		require.NoError(t, err)
		assert.InDelta(t, -1.0, score, 1e-9)
	})

	t.Run("Orthogonal vectors are zero", func(t *testing.T) {
		score, err := CosineSimilarity([]float32{1, 0}, []float32{0, 3})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, score, 1e-9)
	})

	t.Run("Zero vector has similarity zero", func(t *testing.T) {
		score, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
	})

	t.Run("Fail on different lengths", func(t *testing.T) {
		_, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2})
		assert.ErrorIs(t, err, helper.ErrDimensionMismatch)
	})

	t.Run("Stay within bounds", func(t *testing.T) {
		vectors := [][]float32{{1, 2, 3}, {-3, 0.5, 2}, {1e-3, 1e3, -7}, {5, 5, 5}}
		for _, a := range vectors {
			for _, b := range vectors {
				score, err := CosineSimilarity(a, b)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, score, -1.0)
				assert.LessOrEqual(t, score, 1.0)
			}
		}
	})
}

func TestFindSimilar(t *testing.T) {
	near := model.Embedding{ID: uuid.New(), Vector: []float32{1, 0.1}}
	far := model.Embedding{ID: uuid.New(), Vector: []float32{-1, 0}}
	mid := model.Embedding{ID: uuid.New(), Vector: []float32{1, 1}}
	missing := model.Embedding{ID: uuid.New(), Vector: []float32{0, 0}, Missing: true}

	t.Run("Return the top K highest first", func(t *testing.T) {
		results, err := FindSimilar([]float32{1, 0}, []model.Embedding{far, missing, mid, near}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, near.ID, results[0].ID)
		assert.Equal(t, mid.ID, results[1].ID)
	})

	t.Run("Skip missing embeddings", func(t *testing.T) {
		results, err := FindSimilar([]float32{1, 0}, []model.Embedding{missing}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Fail on a candidate of another dimension", func(t *testing.T) {
		odd := model.Embedding{ID: uuid.New(), Vector: []float32{1, 2, 3}}
		_, err := FindSimilar([]float32{1, 0}, []model.Embedding{odd}, 1)
		assert.ErrorIs(t, err, helper.ErrDimensionMismatch)
	})
}
