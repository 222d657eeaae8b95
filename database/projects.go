package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	loadSql "github.com/siherrmann/causemap/sql"
)

// ProjectsDBHandlerFunctions defines the interface for Projects database operations.
type ProjectsDBHandlerFunctions interface {
	InsertProject(ctx context.Context, project *model.Project) error
	SelectProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	SelectProjectsWithEmbedding(ctx context.Context, offset, limit int) ([]*model.Project, error)
	SelectProjectsWithoutEmbedding(ctx context.Context, limit int) ([]*model.Project, error)
	SelectProjectsByCause(ctx context.Context, causeID uuid.UUID) ([]*model.Project, error)
	SelectProjectsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, excludeID *uuid.UUID) ([]*model.Project, error)
	UpdateProjectEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, embeddingModel string) error
	UpdateProjectCauses(ctx context.Context, assignments map[uuid.UUID]uuid.UUID) error
	ClearProjectCauses(ctx context.Context) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

// ProjectsDBHandler handles project-related database operations
type ProjectsDBHandler struct {
	db *helper.Database
}

// NewProjectsDBHandler creates a new projects database handler.
// It loads the project-related SQL functions and creates the table with an
// embedding column of embeddingDim dimensions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewProjectsDBHandler(db *helper.Database, embeddingDim int, force bool) (*ProjectsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	projectsDbHandler := &ProjectsDBHandler{
		db: db,
	}

	err := loadSql.LoadProjectsSql(projectsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load projects sql", err)
	}

	err = projectsDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ProjectsDBHandler")

	return projectsDbHandler, nil
}

// CreateTable creates the 'projects' table in the database.
// If the table already exists, it does not create it again.
func (h *ProjectsDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_projects($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing projects table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table projects")

	return nil
}

// InsertProject inserts a new project. An empty embedding is stored as NULL.
func (h *ProjectsDBHandler) InsertProject(ctx context.Context, project *model.Project) error {
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM insert_project($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		project.Name,
		project.Description,
		project.URL,
		project.Platform,
		project.Stars,
		project.Forks,
		pq.Array(nonNil(project.Languages)),
		pq.Array(nonNil(project.Topics)),
		pq.Array(nonNil(project.Tags)),
		vectorOrNil(project.Embedding),
		project.EmbeddingModel,
	)

	err := scanProject(row, project)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectProject retrieves a project by ID
func (h *ProjectsDBHandler) SelectProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	project := &model.Project{}
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM select_project($1)`,
		id,
	)

	err := scanProject(row, project)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return project, nil
}

// SelectProjectsWithEmbedding pages through embedded projects, most starred first.
func (h *ProjectsDBHandler) SelectProjectsWithEmbedding(ctx context.Context, offset, limit int) ([]*model.Project, error) {
	return h.queryProjects(ctx, `SELECT * FROM select_projects_with_embedding($1, $2)`, offset, limit)
}

// SelectProjectsWithoutEmbedding returns up to limit projects still waiting for an embedding.
func (h *ProjectsDBHandler) SelectProjectsWithoutEmbedding(ctx context.Context, limit int) ([]*model.Project, error) {
	return h.queryProjects(ctx, `SELECT * FROM select_projects_without_embedding($1)`, limit)
}

// SelectProjectsByCause returns the projects directly assigned to a cause.
func (h *ProjectsDBHandler) SelectProjectsByCause(ctx context.Context, causeID uuid.UUID) ([]*model.Project, error) {
	return h.queryProjects(ctx, `SELECT * FROM select_projects_by_cause($1)`, causeID)
}

// SelectProjectsBySimilarity returns up to limit embedded projects ordered by
// cosine similarity to embedding. Projects below threshold and excludeID are
// left out.
func (h *ProjectsDBHandler) SelectProjectsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, excludeID *uuid.UUID) ([]*model.Project, error) {
	if len(embedding) == 0 {
		return nil, helper.NewError("similarity search", fmt.Errorf("%w: query embedding is empty", helper.ErrDegenerateInput))
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_projects_by_similarity($1, $2, $3, $4)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
		excludeID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		project := &model.Project{}
		err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.Description,
			&project.URL,
			&project.Platform,
			&project.Stars,
			&project.Forks,
			pq.Array(&project.Languages),
			pq.Array(&project.Topics),
			pq.Array(&project.Tags),
			pq.Array(&project.Embedding),
			&project.EmbeddingModel,
			&project.CauseID,
			&project.CreatedAt,
			&project.UpdatedAt,
			&project.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		projects = append(projects, project)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return projects, nil
}

// UpdateProjectEmbedding stores the embedding of a project and the model that produced it.
func (h *ProjectsDBHandler) UpdateProjectEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, embeddingModel string) error {
	if len(embedding) == 0 {
		return helper.NewError("update embedding", fmt.Errorf("%w: embedding of project %s is empty", helper.ErrDegenerateInput, id))
	}

	var updatedID uuid.UUID
	var updatedAt time.Time
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM update_project_embedding($1, $2, $3)`,
		id,
		pgvector.NewVector(embedding),
		embeddingModel,
	)

	err := row.Scan(&updatedID, &updatedAt)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// UpdateProjectCauses replaces all cause assignments in one transaction.
// Projects missing from assignments end up without a cause.
func (h *ProjectsDBHandler) UpdateProjectCauses(ctx context.Context, assignments map[uuid.UUID]uuid.UUID) error {
	projectIDs := make([]string, 0, len(assignments))
	causeIDs := make([]string, 0, len(assignments))
	for projectID, causeID := range assignments {
		projectIDs = append(projectIDs, projectID.String())
		causeIDs = append(causeIDs, causeID.String())
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `SELECT clear_project_causes()`)
	if err != nil {
		return helper.NewError("clear causes", err)
	}

	var updated int
	err = tx.QueryRowContext(ctx,
		`SELECT assign_project_causes($1, $2)`,
		pq.Array(projectIDs),
		pq.Array(causeIDs),
	).Scan(&updated)
	if err != nil {
		return helper.NewError("assign causes", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Debug(fmt.Sprintf("Assigned causes to %d projects", updated))

	return nil
}

// ClearProjectCauses removes every cause assignment.
func (h *ProjectsDBHandler) ClearProjectCauses(ctx context.Context) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT clear_project_causes()`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteProject deletes a project by ID
func (h *ProjectsDBHandler) DeleteProject(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx,
		`SELECT delete_project($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func (h *ProjectsDBHandler) queryProjects(ctx context.Context, query string, args ...interface{}) ([]*model.Project, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		project := &model.Project{}
		err := scanProject(rows, project)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		projects = append(projects, project)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return projects, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row scanner, project *model.Project) error {
	return row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.URL,
		&project.Platform,
		&project.Stars,
		&project.Forks,
		pq.Array(&project.Languages),
		pq.Array(&project.Topics),
		pq.Array(&project.Tags),
		pq.Array(&project.Embedding),
		&project.EmbeddingModel,
		&project.CauseID,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
}

func vectorOrNil(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
