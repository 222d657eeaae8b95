package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/core/embedding"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
)

// ProjectSearcher is the project store as seen by the engine.
type ProjectSearcher interface {
	SelectProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	SelectProjectsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, excludeID *uuid.UUID) ([]*model.Project, error)
}

// CauseSource lists the stored causes.
type CauseSource interface {
	SelectAllCauses(ctx context.Context) ([]*model.Cause, error)
}

// Engine answers similarity queries over embedded projects and causes
type Engine struct {
	projects  ProjectSearcher
	causes    CauseSource
	generator *embedding.Generator
}

// NewEngine creates a new retrieval engine
func NewEngine(projects ProjectSearcher, causes CauseSource, generator *embedding.Generator) *Engine {
	return &Engine{
		projects:  projects,
		causes:    causes,
		generator: generator,
	}
}

// Similarity performs vector similarity search over the embedded projects
func (e *Engine) Similarity(ctx context.Context, vector []float32, config *model.QueryConfig) ([]*model.Project, error) {
	return e.projects.SelectProjectsBySimilarity(ctx, vector, config.TopK, config.SimilarityThreshold, nil)
}

// SimilarProjects returns the projects closest to an embedded project,
// leaving the project itself out.
func (e *Engine) SimilarProjects(ctx context.Context, projectID uuid.UUID, config *model.QueryConfig) ([]*model.Project, error) {
	target, err := e.projects.SelectProject(ctx, projectID)
	if err != nil {
		return nil, helper.NewError("select project", err)
	}
	if !target.HasEmbedding() {
		return nil, helper.NewError("similar projects", fmt.Errorf("%w: project %s has no embedding", helper.ErrDegenerateInput, projectID))
	}

	return e.projects.SelectProjectsBySimilarity(ctx, target.Embedding, config.TopK, config.SimilarityThreshold, &projectID)
}

// MatchContributor embeds a contributor profile and ranks the stored causes by
// the similarity of their descriptions. Causes whose text fails to embed are
// skipped.
func (e *Engine) MatchContributor(ctx context.Context, contributor *model.Contributor, config *model.QueryConfig) ([]*model.CauseMatch, error) {
	profile, err := e.generator.Generate(ctx, embedding.ContributorText(contributor))
	if err != nil {
		return nil, helper.NewError("embed contributor", err)
	}

	causes, err := e.causes.SelectAllCauses(ctx)
	if err != nil {
		return nil, helper.NewError("select causes", err)
	}

	byID := make(map[uuid.UUID]*model.Cause, len(causes))
	for _, c := range causes {
		byID[c.ID] = c
	}

	scored, err := embedding.FindSimilar(profile, e.generator.GenerateBatch(ctx, embedding.CauseItems(causes)), -1)
	if err != nil {
		return nil, err
	}

	var matches []*model.CauseMatch
	for _, s := range scored {
		if s.Score < config.SimilarityThreshold {
			continue
		}
		matches = append(matches, &model.CauseMatch{Cause: byID[s.ID], Score: s.Score})
	}

	return sortMatches(matches, config.TopK), nil
}

// sortMatches orders by score, breaking ties by cause size, and keeps topK.
func sortMatches(matches []*model.CauseMatch, topK int) []*model.CauseMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Cause.Size > matches[j].Cause.Size
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
