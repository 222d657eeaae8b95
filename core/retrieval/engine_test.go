package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/core/embedding"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// topicEmbed places texts mentioning health, climate or neither on separate axes.
func topicEmbed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "broken"):
		return nil, errors.New("embedding service unavailable")
	case strings.Contains(lower, "health"):
		return []float32{1, 0.1, 0, 0}, nil
	case strings.Contains(lower, "climate"):
		return []float32{0, 1, 0.1, 0}, nil
	default:
		return []float32{0, 0, 0.1, 1}, nil
	}
}

func newTestGenerator(t *testing.T) *embedding.Generator {
	config := model.EmbeddingConfig{Model: "topic", Dimension: testDimension, BatchSize: 4}
	generator, err := embedding.NewGenerator(topicEmbed, config, nil)
	require.NoError(t, err)
	return generator
}

type fakeCauses []*model.Cause

func (f fakeCauses) SelectAllCauses(ctx context.Context) ([]*model.Cause, error) {
	return f, nil
}

func TestNewEngine(t *testing.T) {
	t.Run("Create new engine", func(t *testing.T) {
		projects, causes := initHandlers(t)
		engine := NewEngine(projects, causes, newTestGenerator(t))
		require.NotNil(t, engine, "Expected NewEngine to return a non-nil instance")
		assert.NotNil(t, engine.projects, "Expected engine to have a projects handler")
	})
}

func TestSimilarProjects(t *testing.T) {
	ctx := context.Background()
	projects, causes := initHandlers(t)
	engine := NewEngine(projects, causes, newTestGenerator(t))

	insert := func(name string, vector []float32) *model.Project {
		p := &model.Project{Name: name, Embedding: vector, EmbeddingModel: "topic"}
		require.NoError(t, projects.InsertProject(ctx, p), "Expected InsertProject to not return an error")
		return p
	}

	source := insert("openmrs", []float32{1, 0, 0, 0})
	near := insert("dhis2", []float32{0.9, 0.1, 0, 0})
	insert("climate-model", []float32{0, 1, 0, 0})
	bare := &model.Project{Name: "unembedded"}
	require.NoError(t, projects.InsertProject(ctx, bare))

	t.Run("Return neighbours without the source project", func(t *testing.T) {
		config := model.QueryConfig{TopK: 5, SimilarityThreshold: 0.8}
		similar, err := engine.SimilarProjects(ctx, source.ID, &config)
		require.NoError(t, err, "Expected SimilarProjects to not return an error")
		require.Len(t, similar, 1, "Expected only the close project above the threshold")
		assert.Equal(t, near.ID, similar[0].ID)
		require.NotNil(t, similar[0].Similarity)
		assert.Greater(t, *similar[0].Similarity, 0.8)
	})

	t.Run("Search by a raw vector", func(t *testing.T) {
		config := model.QueryConfig{TopK: 1, SimilarityThreshold: 0}
		similar, err := engine.Similarity(ctx, []float32{0, 1, 0, 0}, &config)
		require.NoError(t, err)
		require.Len(t, similar, 1)
		assert.Equal(t, "climate-model", similar[0].Name)
	})

	t.Run("Fail for a project without embedding", func(t *testing.T) {
		config := model.DefaultQueryConfig()
		_, err := engine.SimilarProjects(ctx, bare.ID, &config)
		assert.ErrorIs(t, err, helper.ErrDegenerateInput)
	})

	t.Run("Fail for an unknown project", func(t *testing.T) {
		config := model.DefaultQueryConfig()
		_, err := engine.SimilarProjects(ctx, uuid.New(), &config)
		assert.Error(t, err)
	})
}

func TestMatchContributor(t *testing.T) {
	ctx := context.Background()

	health := &model.Cause{ID: uuid.New(), Name: "Public Health", Size: 10}
	climate := &model.Cause{ID: uuid.New(), Name: "Climate Action", Size: 8}
	broken := &model.Cause{ID: uuid.New(), Name: "Broken Cause", Size: 3}
	engine := NewEngine(nil, fakeCauses{climate, broken, health}, newTestGenerator(t))

	t.Run("Rank the closest cause first", func(t *testing.T) {
		config := model.QueryConfig{TopK: 2}
		matches, err := engine.MatchContributor(ctx, &model.Contributor{Name: "Ada", Bio: "Builds health record systems"}, &config)
		require.NoError(t, err, "Expected MatchContributor to not return an error")
		require.Len(t, matches, 2)
		assert.Equal(t, health.ID, matches[0].Cause.ID)
		assert.Greater(t, matches[0].Score, matches[1].Score)
	})

	t.Run("Skip causes that fail to embed", func(t *testing.T) {
		config := model.QueryConfig{TopK: 10, SimilarityThreshold: -1}
		matches, err := engine.MatchContributor(ctx, &model.Contributor{Name: "Ada", Bio: "Climate data"}, &config)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
		for _, m := range matches {
			assert.NotEqual(t, broken.ID, m.Cause.ID)
		}
	})

	t.Run("Apply the similarity threshold", func(t *testing.T) {
		config := model.QueryConfig{TopK: 10, SimilarityThreshold: 0.9}
		matches, err := engine.MatchContributor(ctx, &model.Contributor{Name: "Ada", Bio: "Climate data"}, &config)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, climate.ID, matches[0].Cause.ID)
	})

	t.Run("Fail when the profile cannot be embedded", func(t *testing.T) {
		config := model.DefaultQueryConfig()
		_, err := engine.MatchContributor(ctx, &model.Contributor{Name: "Broken"}, &config)
		assert.Error(t, err)
	})
}

func TestSortMatches(t *testing.T) {
	t.Run("Break ties by cause size", func(t *testing.T) {
		small := &model.CauseMatch{Cause: &model.Cause{Size: 2}, Score: 0.5}
		large := &model.CauseMatch{Cause: &model.Cause{Size: 9}, Score: 0.5}
		best := &model.CauseMatch{Cause: &model.Cause{Size: 1}, Score: 0.9}

		sorted := sortMatches([]*model.CauseMatch{small, large, best}, 0)
		assert.Equal(t, []*model.CauseMatch{best, large, small}, sorted)
	})

	t.Run("Keep the top K", func(t *testing.T) {
		matches := []*model.CauseMatch{
			{Cause: &model.Cause{}, Score: 0.1},
			{Cause: &model.Cause{}, Score: 0.2},
		}
		assert.Len(t, sortMatches(matches, 1), 1)
	})
}
