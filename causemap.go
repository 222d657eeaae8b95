package causemap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/core/discovery"
	"github.com/siherrmann/causemap/core/embedding"
	"github.com/siherrmann/causemap/core/graph"
	"github.com/siherrmann/causemap/core/labeling"
	"github.com/siherrmann/causemap/core/provider"
	"github.com/siherrmann/causemap/core/reduction"
	"github.com/siherrmann/causemap/core/retrieval"
	"github.com/siherrmann/causemap/database"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	loadSql "github.com/siherrmann/causemap/sql"
)

// CauseMap provides a unified interface to the data store and the discovery pipeline
type CauseMap struct {
	DB          *helper.Database
	Projects    *database.ProjectsDBHandler
	Causes      *database.CausesDBHandler
	Projections *database.ProjectionsDBHandler
	Generator   *embedding.Generator
	Labeler     *labeling.Labeler
	Discoverer  *discovery.Discoverer
	Retrieval   *retrieval.Engine
	DotSizes    model.DotSizeConfig
	// Releases local model sessions
	closeEmbedder func() error
	// Logging
	log *slog.Logger
}

// Services are the external functions a CauseMap depends on.
// Complete may be nil to label from metadata only.
type Services struct {
	Embed     embedding.EmbedFunc
	Complete  labeling.CompleteFunc
	Close     func() error
	Embedding model.EmbeddingConfig
}

// NewCauseMap creates a CauseMap with the embedding and language model
// services selected by serviceConfig.
func NewCauseMap(dbConfig *helper.DatabaseConfiguration, serviceConfig *helper.ServiceConfiguration) (*CauseMap, error) {
	if serviceConfig == nil {
		return nil, helper.NewError("service configuration", fmt.Errorf("%w: configuration is nil", helper.ErrConfiguration))
	}
	if err := serviceConfig.Validate(); err != nil {
		return nil, helper.NewError("service configuration", err)
	}

	embed, closeEmbedder, err := provider.NewEmbedFunc(serviceConfig)
	if err != nil {
		return nil, err
	}

	complete, err := provider.NewCompleteFunc(serviceConfig)
	if err != nil {
		_ = closeEmbedder()
		return nil, err
	}

	embeddingConfig := model.DefaultEmbeddingConfig()
	embeddingConfig.Model = serviceConfig.EmbeddingModel
	embeddingConfig.Dimension = serviceConfig.EmbeddingDimension

	return NewCauseMapWithServices(dbConfig, Services{
		Embed:     embed,
		Complete:  complete,
		Close:     closeEmbedder,
		Embedding: embeddingConfig,
	})
}

// NewCauseMapWithServices creates a CauseMap with all handlers initialized
// and the given services wired into the pipeline.
func NewCauseMapWithServices(dbConfig *helper.DatabaseConfiguration, services Services) (*CauseMap, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	generator, err := embedding.NewGenerator(services.Embed, services.Embedding, logger)
	if err != nil {
		return nil, helper.NewError("create generator", err)
	}

	// Initialize database
	db, err := helper.NewDatabase("causemap", dbConfig, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}
	err = loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	projects, err := database.NewProjectsDBHandler(db, services.Embedding.Dimension, false)
	if err != nil {
		return nil, helper.NewError("create projects handler", err)
	}

	causes, err := database.NewCausesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create causes handler", err)
	}

	projections, err := database.NewProjectionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create projections handler", err)
	}

	labeler := labeling.NewLabeler(services.Complete, model.DefaultLabelerConfig(), logger)
	discoverer := discovery.NewDiscoverer(
		projects,
		labeler,
		model.DefaultDiscoveryConfig(),
		model.DefaultReducerConfig(),
		model.DefaultOutlierConfig(),
		logger,
	)

	closeEmbedder := services.Close
	if closeEmbedder == nil {
		closeEmbedder = func() error { return nil }
	}

	return &CauseMap{
		DB:            db,
		Projects:      projects,
		Causes:        causes,
		Projections:   projections,
		Generator:     generator,
		Labeler:       labeler,
		Discoverer:    discoverer,
		Retrieval:     retrieval.NewEngine(projects, causes, generator),
		DotSizes:      model.DefaultDotSizeConfig(),
		closeEmbedder: closeEmbedder,
		log:           logger,
	}, nil
}

// Close releases the embedding service and closes the database connection
func (c *CauseMap) Close() error {
	errEmbedder := c.closeEmbedder()
	if c.DB != nil && c.DB.Instance != nil {
		if err := c.DB.Instance.Close(); err != nil {
			return err
		}
	}
	return errEmbedder
}

// EmbedProjects embeds up to limit projects that have no embedding yet and
// stores the successful ones. Failed projects stay pending for the next run.
func (c *CauseMap) EmbedProjects(ctx context.Context, limit int) (embedded int, missing int, err error) {
	projects, err := c.Projects.SelectProjectsWithoutEmbedding(ctx, limit)
	if err != nil {
		return 0, 0, helper.NewError("select pending projects", err)
	}
	if len(projects) == 0 {
		c.log.Info("No projects waiting for an embedding")
		return 0, 0, nil
	}

	embeddings := c.Generator.GenerateBatch(ctx, embedding.ProjectItems(projects))
	for _, e := range embeddings {
		if e.IsMissing() {
			missing++
			continue
		}

		err := c.Projects.UpdateProjectEmbedding(ctx, e.ID, e.Vector, e.Model)
		if err != nil {
			c.log.Warn("Failed to store embedding", slog.String("project_id", e.ID.String()), slog.Any("error", err))
			missing++
			continue
		}
		embedded++
	}

	c.log.Info("Embedded projects", slog.Int("embedded", embedded), slog.Int("missing", missing))

	if embedded > 0 {
		_, err := c.Projections.DeleteProjectionsByScope(ctx, nil)
		if err != nil {
			return embedded, missing, helper.NewError("invalidate global projections", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return embedded, missing, helper.NewError("embed projects", err)
	}
	return embedded, missing, nil
}

// DiscoverCauses runs discovery and replaces the stored causes and project
// assignments with the result. A run without causes leaves the store as is.
func (c *CauseMap) DiscoverCauses(ctx context.Context) (*model.DiscoveryResult, error) {
	result, err := c.Discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(result.Causes) == 0 {
		c.log.Warn("Discovery found no causes, keeping stored causes", slog.String("reason", result.Reason))
		return result, nil
	}

	err = c.Causes.ReplaceCauses(ctx, result.Causes)
	if err != nil {
		return nil, helper.NewError("store causes", err)
	}

	err = c.Projects.UpdateProjectCauses(ctx, result.Assignments)
	if err != nil {
		return nil, helper.NewError("store assignments", err)
	}

	deleted, err := c.Projections.DeleteCauseProjections(ctx)
	if err != nil {
		return nil, helper.NewError("invalidate cause projections", err)
	}
	c.log.Debug("Invalidated cause projections", slog.Int("deleted", deleted))

	return result, nil
}

// ComputeProjections projects the population of a scope and caches the
// result. The global scope is nil, any other scope is a cause together with
// its subcauses. Scopes too small to project are skipped: the returned
// reason is set and nothing is stored.
func (c *CauseMap) ComputeProjections(ctx context.Context, scopeID *uuid.UUID) (projected int, reason string, err error) {
	projects, err := c.population(ctx, scopeID)
	if err != nil {
		return 0, "", err
	}

	projections, err := c.Discoverer.Project(ctx, scopeID, projects, c.Generator.Config().Model)
	if errors.Is(err, helper.ErrDegenerateInput) {
		c.log.Warn("Skipping projection", slog.String("scope", reduction.ScopeName(scopeID)), slog.Any("error", err))
		return 0, err.Error(), nil
	}
	if err != nil {
		return 0, "", helper.NewError("project scope", err)
	}

	err = c.Projections.ReplaceScopeProjections(ctx, scopeID, projections)
	if err != nil {
		return 0, "", helper.NewError("store projections", err)
	}

	return len(projections), "", nil
}

// VisualizationData returns the nodes to draw for a scope. The projections
// are recomputed first when none are cached for the current model or when
// the cached ones cover a different set of projects than the scope holds.
func (c *CauseMap) VisualizationData(ctx context.Context, scopeID *uuid.UUID) ([]model.VisualNode, error) {
	modelVersion := c.Generator.Config().Model

	projects, err := c.population(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	projections, err := c.Projections.SelectProjectionsByScope(ctx, scopeID, modelVersion)
	if err != nil {
		return nil, helper.NewError("select projections", err)
	}
	if len(projections) == 0 || !coversProjects(projections, reduction.UsableProjects(projects)) {
		_, reason, err := c.ComputeProjections(ctx, scopeID)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			return []model.VisualNode{}, nil
		}
		projections, err = c.Projections.SelectProjectionsByScope(ctx, scopeID, modelVersion)
		if err != nil {
			return nil, helper.NewError("select projections", err)
		}
	}

	causes, err := c.Causes.SelectAllCauses(ctx)
	if err != nil {
		return nil, helper.NewError("select causes", err)
	}

	return reduction.BuildNodes(projects, projections, causes, c.DotSizes), nil
}

// SimilarProjects returns the embedded projects closest to a project.
func (c *CauseMap) SimilarProjects(ctx context.Context, projectID uuid.UUID, config *model.QueryConfig) ([]*model.Project, error) {
	return c.Retrieval.SimilarProjects(ctx, projectID, config)
}

// MatchContributor ranks the stored causes by how close their description is
// to a contributor's profile.
func (c *CauseMap) MatchContributor(ctx context.Context, contributor *model.Contributor, config *model.QueryConfig) ([]*model.CauseMatch, error) {
	return c.Retrieval.MatchContributor(ctx, contributor, config)
}

// coversProjects reports whether the projections belong to exactly the
// given projects.
func coversProjects(projections []model.Projection, projects []*model.Project) bool {
	if len(projections) != len(projects) {
		return false
	}
	ids := make(map[uuid.UUID]struct{}, len(projects))
	for _, p := range projects {
		ids[p.ID] = struct{}{}
	}
	for _, p := range projections {
		if _, ok := ids[p.ProjectID]; !ok {
			return false
		}
	}
	return true
}

// population loads the embedded projects of a scope: everything for the
// global scope, otherwise the cause and its subcauses.
func (c *CauseMap) population(ctx context.Context, scopeID *uuid.UUID) ([]*model.Project, error) {
	if scopeID == nil {
		var projects []*model.Project
		batch := model.DefaultDiscoveryConfig().LoadBatchSize
		for offset := 0; ; offset += batch {
			page, err := c.Projects.SelectProjectsWithEmbedding(ctx, offset, batch)
			if err != nil {
				return nil, helper.NewError("select projects", err)
			}
			projects = append(projects, page...)
			if len(page) < batch {
				return projects, nil
			}
		}
	}

	scope, err := graph.BFS(ctx, c.Causes, *scopeID, 1)
	if err != nil {
		return nil, helper.NewError("select subcauses", err)
	}

	var projects []*model.Project
	for _, id := range graph.IDs(scope) {
		members, err := c.Projects.SelectProjectsByCause(ctx, id)
		if err != nil {
			return nil, helper.NewError("select cause projects", err)
		}
		projects = append(projects, members...)
	}
	return projects, nil
}

// ChangeIndexType rebuilds the index on the project embeddings
func (c *CauseMap) ChangeIndexType(ctx context.Context, indexType database.IndexType, params database.IndexParams) error {
	return c.Projects.ChangeIndexType(ctx, indexType, params)
}
