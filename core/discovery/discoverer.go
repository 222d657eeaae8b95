package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/core/clustering"
	"github.com/siherrmann/causemap/core/embedding"
	"github.com/siherrmann/causemap/core/labeling"
	"github.com/siherrmann/causemap/core/reduction"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"gonum.org/v1/gonum/floats"
)

const (
	ReasonNoEmbeddings = "no embeddings"
	ReasonNoClusters   = "no cluster reached the minimum size"
)

// ProjectSource pages through embedded projects ordered by stars descending.
type ProjectSource interface {
	SelectProjectsWithEmbedding(ctx context.Context, offset, limit int) ([]*model.Project, error)
}

// Discoverer runs hierarchical cause discovery over the embedded population.
type Discoverer struct {
	projects ProjectSource
	labeler  *labeling.Labeler
	config   model.DiscoveryConfig
	reducer  model.ReducerConfig
	outlier  model.OutlierConfig
	log      *slog.Logger
}

func NewDiscoverer(projects ProjectSource, labeler *labeling.Labeler, config model.DiscoveryConfig, reducer model.ReducerConfig, outlier model.OutlierConfig, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.LoadBatchSize <= 0 {
		config.LoadBatchSize = model.DefaultDiscoveryConfig().LoadBatchSize
	}

	return &Discoverer{
		projects: projects,
		labeler:  labeler,
		config:   config,
		reducer:  reducer,
		outlier:  outlier,
		log:      logger,
	}
}

// Discover loads every embedded project, clusters the population into
// top-level causes, splits large causes into subcauses and labels all of
// them. A store failure or an empty population yields an empty result with
// a reason. Only cancellation is returned as an error.
func (d *Discoverer) Discover(ctx context.Context) (*model.DiscoveryResult, error) {
	start := time.Now()
	result := &model.DiscoveryResult{
		Assignments: map[uuid.UUID]uuid.UUID{},
		Method:      model.DiscoveryMethodEmbedding,
	}

	projects, skipped, err := d.load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, helper.NewError("discover", ctx.Err())
		}
		d.log.Error("Failed to load embedded projects", slog.Any("error", err))
		result.Reason = ReasonNoEmbeddings
		result.Duration = time.Since(start)
		return result, nil
	}
	result.Population = len(projects)
	result.Skipped = skipped
	if len(projects) == 0 {
		result.Reason = ReasonNoEmbeddings
		result.Duration = time.Since(start)
		return result, nil
	}

	vectors := make([][]float64, len(projects))
	for i, p := range projects {
		vectors[i] = embedding.ToFloat64(p.Embedding)
	}

	top, method, err := d.clusterTopLevel(projects, vectors)
	if err != nil {
		return nil, helper.NewError("discover", err)
	}
	result.Method = method
	result.Silhouette = top.Silhouette
	result.Unclustered = ids(projects, top.Unclustered)
	if len(top.Groups) == 0 {
		result.Reason = ReasonNoClusters
		result.Duration = time.Since(start)
		return result, nil
	}

	requests := make([]labeling.Request, len(top.Groups))
	for i, group := range top.Groups {
		requests[i] = labeling.Request{
			Index:    i,
			Level:    0,
			Centroid: centroid(vectors, group.Members),
			Projects: pick(projects, group.Members),
		}
	}
	parents := d.labeler.LabelAll(ctx, requests)

	children, members, err := d.subcluster(ctx, projects, vectors, top, parents)
	if err != nil {
		return nil, helper.NewError("discover", err)
	}

	for i, group := range top.Groups {
		for _, m := range group.Members {
			result.Assignments[projects[m].ID] = parents[i].ID
		}
	}
	for i, child := range children {
		for _, m := range members[i] {
			result.Assignments[projects[m].ID] = child.ID
		}
	}

	// parents keep only the projects no subcause claimed; Size stays the tree total
	for _, parent := range parents {
		direct := make([]uuid.UUID, 0, len(parent.ProjectIDs))
		for _, id := range parent.ProjectIDs {
			if result.Assignments[id] == parent.ID {
				direct = append(direct, id)
			}
		}
		parent.ProjectIDs = direct
	}

	result.Causes = append(parents, children...)
	result.Duration = time.Since(start)

	d.log.Info("Discovered causes",
		slog.Int("population", result.Population),
		slog.Int("skipped", result.Skipped),
		slog.Int("top_level", len(parents)),
		slog.Int("subcauses", len(children)),
		slog.Int("unclustered", len(result.Unclustered)),
		slog.Float64("silhouette", result.Silhouette),
		slog.String("method", string(result.Method)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// Project computes the cached projections of one scope.
func (d *Discoverer) Project(ctx context.Context, scopeID *uuid.UUID, projects []*model.Project, modelVersion string) ([]model.Projection, error) {
	if err := ctx.Err(); err != nil {
		return nil, helper.NewError("project", err)
	}
	return reduction.ProjectScope(scopeID, projects, modelVersion, d.reducer, d.outlier)
}

func (d *Discoverer) load(ctx context.Context) ([]*model.Project, int, error) {
	var all []*model.Project
	for offset := 0; ; offset += d.config.LoadBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		page, err := d.projects.SelectProjectsWithEmbedding(ctx, offset, d.config.LoadBatchSize)
		if err != nil {
			return nil, 0, helper.NewError("load projects", err)
		}
		all = append(all, page...)
		if len(page) < d.config.LoadBatchSize {
			break
		}
	}

	usable := reduction.UsableProjects(all)
	skipped := len(all) - len(usable)
	if skipped > 0 {
		d.log.Warn("Skipping projects without a usable embedding",
			slog.Int("skipped", skipped),
			slog.Int("loaded", len(all)),
		)
	}
	return usable, skipped, nil
}

func (d *Discoverer) clusterTopLevel(projects []*model.Project, vectors [][]float64) (*clustering.Result, model.DiscoveryMethod, error) {
	n := len(projects)
	if n >= d.config.MaxTopLevel*d.config.MinMembers {
		result, err := clustering.Cluster(d.reduceForClustering(vectors), model.ClusterConfig{
			MaxK:          d.config.MaxTopLevel,
			MinMembers:    d.config.MinMembers,
			MaxIterations: d.config.TopIterations,
			Seed:          d.config.Seed,
		})
		return result, model.DiscoveryMethodEmbedding, err
	}

	d.log.Info("Population too small for embedding clustering, using metadata features", slog.Int("population", n))

	k := min(d.config.FallbackK, n/3)
	if k < 1 && n >= d.config.FallbackMembers {
		k = 1
	}
	result, err := clustering.ClusterK(MetadataFeatures(projects), k, model.ClusterConfig{
		MinMembers:    d.config.FallbackMembers,
		MaxIterations: d.config.SubIterations,
		Seed:          d.config.Seed,
	})
	return result, model.DiscoveryMethodMetadata, err
}

// reduceForClustering projects onto ClusterDimensions centered principal
// components, or keeps the leading raw dimensions when PCA is unavailable.
func (d *Discoverer) reduceForClustering(vectors [][]float64) [][]float64 {
	config := d.reducer
	config.Scale = false

	reduced, err := reduction.Reduce(vectors, d.config.ClusterDimensions, config)
	if err == nil && reduced.Method != model.ReductionRandom {
		return reduced.Coordinates
	}

	d.log.Warn("PCA unavailable for clustering, truncating embeddings",
		slog.Int("dimensions", d.config.ClusterDimensions),
		slog.Any("error", err),
	)
	return reduction.Columns(vectors, min(d.config.ClusterDimensions, len(vectors[0])))
}

// subcluster splits large top-level causes on the full embeddings and labels
// the subcauses. members[i] holds the project indices of children[i].
func (d *Discoverer) subcluster(ctx context.Context, projects []*model.Project, vectors [][]float64, top *clustering.Result, parents []*model.Cause) ([]*model.Cause, [][]int, error) {
	if !d.config.EnableSubclusters {
		return nil, nil, nil
	}

	config := model.ClusterConfig{
		MaxK:          d.config.MaxSubLevel,
		MinMembers:    d.config.MinMembers,
		MaxIterations: d.config.SubIterations,
		Seed:          d.config.Seed,
	}

	var requests []labeling.Request
	var members [][]int
	index := len(parents)
	for i, group := range top.Groups {
		if !clustering.ShouldSubcluster(len(group.Members), d.config.MinMembers, d.config.MaxSubLevel) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		sub, err := clustering.Subcluster(vectors, group.Members, config)
		if err != nil {
			d.log.Warn("Skipping subclusters", slog.String("cause", parents[i].Name), slog.Any("error", err))
			continue
		}
		if len(sub.Groups) < 2 {
			continue
		}

		parentID := parents[i].ID
		for _, sg := range sub.Groups {
			requests = append(requests, labeling.Request{
				Index:    index,
				Level:    1,
				ParentID: &parentID,
				Centroid: centroid(vectors, sg.Members),
				Projects: pick(projects, sg.Members),
			})
			members = append(members, sg.Members)
			index++
		}
	}

	return d.labeler.LabelAll(ctx, requests), members, nil
}

func pick(projects []*model.Project, indices []int) []*model.Project {
	picked := make([]*model.Project, len(indices))
	for i, idx := range indices {
		picked[i] = projects[idx]
	}
	return picked
}

func ids(projects []*model.Project, indices []int) []uuid.UUID {
	out := make([]uuid.UUID, len(indices))
	for i, idx := range indices {
		out[i] = projects[idx].ID
	}
	return out
}

func centroid(vectors [][]float64, members []int) []float64 {
	if len(members) == 0 {
		return nil
	}
	mean := make([]float64, len(vectors[members[0]]))
	for _, m := range members {
		floats.Add(mean, vectors[m])
	}
	floats.Scale(1/float64(len(members)), mean)
	return mean
}
