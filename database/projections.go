package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	loadSql "github.com/siherrmann/causemap/sql"
)

type queryRowFunc func(ctx context.Context, query string, args ...interface{}) *sql.Row

// ProjectionsDBHandlerFunctions defines the interface for Projections database operations.
type ProjectionsDBHandlerFunctions interface {
	ReplaceScopeProjections(ctx context.Context, scopeID *uuid.UUID, projections []model.Projection) error
	SelectProjectionsByScope(ctx context.Context, scopeID *uuid.UUID, modelVersion string) ([]model.Projection, error)
	DeleteProjectionsByScope(ctx context.Context, scopeID *uuid.UUID) (int, error)
	DeleteCauseProjections(ctx context.Context) (int, error)
}

// ProjectionsDBHandler handles the cached per-scope PCA projections.
// A nil scope ID is the global scope.
type ProjectionsDBHandler struct {
	db *helper.Database
}

// NewProjectionsDBHandler creates a new projections database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewProjectionsDBHandler(db *helper.Database, force bool) (*ProjectionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	projectionsDbHandler := &ProjectionsDBHandler{
		db: db,
	}

	err := loadSql.LoadProjectionsSql(projectionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load projections sql", err)
	}

	err = projectionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ProjectionsDBHandler")

	return projectionsDbHandler, nil
}

// CreateTable creates the 'projections' table in the database.
// If the table already exists, it does not create it again.
func (h *ProjectionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_projections();`)
	if err != nil {
		log.Panicf("error initializing projections table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table projections")

	return nil
}

// ReplaceScopeProjections deletes every projection of the scope, whatever its
// model version, and inserts the new ones in one transaction.
func (h *ProjectionsDBHandler) ReplaceScopeProjections(ctx context.Context, scopeID *uuid.UUID, projections []model.Projection) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int
	err = tx.QueryRowContext(ctx, `SELECT delete_projections_by_scope($1)`, scopeID).Scan(&deleted)
	if err != nil {
		return helper.NewError("delete projections", err)
	}

	for i := range projections {
		p := &projections[i]
		err = tx.QueryRowContext(ctx,
			`SELECT insert_projection($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			scopeID,
			p.ProjectID,
			pq.Array(p.Components),
			pq.Array(p.Variance),
			p.X,
			p.Y,
			p.Z,
			p.IsOutlier,
			string(p.Method),
			p.ModelVersion,
		).Scan(&p.CreatedAt)
		if err != nil {
			return helper.NewError("insert projection", err)
		}
		p.ScopeID = scopeID
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Replaced %d projections of scope %s with %d", deleted, scopeName(scopeID), len(projections)))

	return nil
}

// SelectProjectionsByScope returns the projections of a scope computed with modelVersion.
func (h *ProjectionsDBHandler) SelectProjectionsByScope(ctx context.Context, scopeID *uuid.UUID, modelVersion string) ([]model.Projection, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_projections_by_scope($1, $2)`,
		scopeID,
		modelVersion,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var projections []model.Projection
	for rows.Next() {
		var p model.Projection
		var method string
		err := rows.Scan(
			&p.ScopeID,
			&p.ProjectID,
			pq.Array(&p.Components),
			pq.Array(&p.Variance),
			&p.X,
			&p.Y,
			&p.Z,
			&p.IsOutlier,
			&method,
			&p.ModelVersion,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		p.Method = model.ReductionMethod(method)

		projections = append(projections, p)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return projections, nil
}

// DeleteProjectionsByScope deletes the projections of a scope and returns how many were removed.
func (h *ProjectionsDBHandler) DeleteProjectionsByScope(ctx context.Context, scopeID *uuid.UUID) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_projections_by_scope($1)`, scopeID).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("exec", err)
	}
	return deleted, nil
}

// DeleteCauseProjections deletes the projections of every cause scope,
// keeping the global scope.
func (h *ProjectionsDBHandler) DeleteCauseProjections(ctx context.Context) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_cause_projections()`).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("exec", err)
	}
	return deleted, nil
}

func scopeName(scopeID *uuid.UUID) string {
	if scopeID == nil {
		return "global"
	}
	return scopeID.String()
}
