package clustering

import (
	"testing"

	"github.com/siherrmann/causemap/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSilhouette(t *testing.T) {
	t.Run("Well separated clusters score near one", func(t *testing.T) {
		score := Silhouette(twoGroups(), []int{0, 0, 0, 1, 1, 1})
		assert.Greater(t, score, 0.9)
		assert.LessOrEqual(t, score, 1.0)
	})

	t.Run("Swapped labels score negative", func(t *testing.T) {
		vectors := [][]float64{{0}, {0.1}, {10}, {10.1}}
		score := Silhouette(vectors, []int{0, 1, 0, 1})
		assert.Less(t, score, 0.0)
		assert.GreaterOrEqual(t, score, -1.0)
	})

	t.Run("A single cluster scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Silhouette(twoGroups(), []int{0, 0, 0, 0, 0, 0}))
	})

	t.Run("Ignore unassigned points and singletons", func(t *testing.T) {
		vectors := [][]float64{{0}, {0.1}, {5}, {50}}
		score := Silhouette(vectors, []int{0, 0, 1, -1})
		// the singleton adds a zero to the average of three points
		assert.InDelta(t, (2*(1-0.1/4.95))/3, score, 0.01)
	})
}

func TestSubcluster(t *testing.T) {
	t.Run("Split one group and map indices back", func(t *testing.T) {
		vectors := append([][]float64{{100, 100}}, blobs([][]float64{{0, 0}, {8, 8}}, 8, 1, 5)...)
		members := make([]int, 0, 16)
		for i := 1; i <= 16; i++ {
			members = append(members, i)
		}
		config := model.ClusterConfig{MaxK: 3, MinMembers: 3, MaxIterations: 30, Seed: 3}

		result, err := Subcluster(vectors, members, config)
		require.NoError(t, err)
		require.Len(t, result.Assignments, len(vectors))
		assert.Equal(t, -1, result.Assignments[0], "Expected the non member to stay unassigned")
		assert.GreaterOrEqual(t, len(result.Groups), 2)

		seen := map[int]bool{}
		for _, g := range result.Groups {
			for _, m := range g.Members {
				assert.GreaterOrEqual(t, m, 1)
				assert.False(t, seen[m], "Expected member %d once", m)
				seen[m] = true
			}
		}
		for _, m := range result.Unclustered {
			assert.False(t, seen[m])
			seen[m] = true
		}
		assert.Len(t, seen, 16)
	})
}

func TestShouldSubcluster(t *testing.T) {
	t.Run("Require more than minMembers x 2 x subK", func(t *testing.T) {
		assert.False(t, ShouldSubcluster(30, 5, 3))
		assert.True(t, ShouldSubcluster(31, 5, 3))
	})
}
