package database

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	loadSql "github.com/siherrmann/causemap/sql"
)

// CausesDBHandlerFunctions defines the interface for Causes database operations.
type CausesDBHandlerFunctions interface {
	InsertCause(ctx context.Context, cause *model.Cause) error
	SelectCause(ctx context.Context, id uuid.UUID) (*model.Cause, error)
	SelectAllCauses(ctx context.Context) ([]*model.Cause, error)
	SelectCausesByParent(ctx context.Context, parentID uuid.UUID) ([]*model.Cause, error)
	ReplaceCauses(ctx context.Context, causes []*model.Cause) error
	DeleteCause(ctx context.Context, id uuid.UUID) error
}

// CausesDBHandler handles cause-related database operations
type CausesDBHandler struct {
	db *helper.Database
}

// NewCausesDBHandler creates a new causes database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewCausesDBHandler(db *helper.Database, force bool) (*CausesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	causesDbHandler := &CausesDBHandler{
		db: db,
	}

	err := loadSql.LoadCausesSql(causesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load causes sql", err)
	}

	err = causesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized CausesDBHandler")

	return causesDbHandler, nil
}

// CreateTable creates the 'causes' table in the database.
// If the table already exists, it does not create it again.
func (h *CausesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_causes();`)
	if err != nil {
		log.Panicf("error initializing causes table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table causes")

	return nil
}

// InsertCause inserts a cause. A zero ID is replaced by a generated one.
func (h *CausesDBHandler) InsertCause(ctx context.Context, cause *model.Cause) error {
	return insertCause(ctx, h.db.Instance.QueryRowContext, cause)
}

// SelectCause retrieves a cause by ID
func (h *CausesDBHandler) SelectCause(ctx context.Context, id uuid.UUID) (*model.Cause, error) {
	cause := &model.Cause{}
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM select_cause($1)`,
		id,
	)

	err := scanCause(row, cause)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return cause, nil
}

// SelectAllCauses returns every cause, top-level causes first.
func (h *CausesDBHandler) SelectAllCauses(ctx context.Context) ([]*model.Cause, error) {
	return h.queryCauses(ctx, `SELECT * FROM select_all_causes()`)
}

// SelectCausesByParent returns the subcauses of a cause.
func (h *CausesDBHandler) SelectCausesByParent(ctx context.Context, parentID uuid.UUID) ([]*model.Cause, error) {
	return h.queryCauses(ctx, `SELECT * FROM select_causes_by_parent($1)`, parentID)
}

// ReplaceCauses deletes all causes and inserts the given ones in one
// transaction. Parents are inserted before their subcauses.
func (h *CausesDBHandler) ReplaceCauses(ctx context.Context, causes []*model.Cause) error {
	ordered := append([]*model.Cause(nil), causes...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Level < ordered[j].Level })

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `SELECT delete_all_causes()`)
	if err != nil {
		return helper.NewError("delete causes", err)
	}

	for _, cause := range ordered {
		err = insertCause(ctx, tx.QueryRowContext, cause)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Replaced causes with %d new ones", len(ordered)))

	return nil
}

// DeleteCause deletes a cause and its subcauses.
func (h *CausesDBHandler) DeleteCause(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx,
		`SELECT delete_cause($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func (h *CausesDBHandler) queryCauses(ctx context.Context, query string, args ...interface{}) ([]*model.Cause, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var causes []*model.Cause
	for rows.Next() {
		cause := &model.Cause{}
		err := scanCause(rows, cause)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		causes = append(causes, cause)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return causes, nil
}

func insertCause(ctx context.Context, queryRow queryRowFunc, cause *model.Cause) error {
	var id *uuid.UUID
	if cause.ID != uuid.Nil {
		id = &cause.ID
	}

	row := queryRow(ctx,
		`SELECT * FROM insert_cause($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id,
		cause.Name,
		cause.Description,
		pq.Array(nonNil(cause.Keywords)),
		cause.Color,
		cause.Level,
		cause.ParentID,
		pq.Array(uuidStrings(cause.ProjectIDs)),
		pq.Array(cause.Centroid),
		cause.Confidence,
		cause.Size,
		cause.Metadata,
	)

	err := scanCause(row, cause)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

func scanCause(row scanner, cause *model.Cause) error {
	var projectIDs []string
	err := row.Scan(
		&cause.ID,
		&cause.Name,
		&cause.Description,
		pq.Array(&cause.Keywords),
		&cause.Color,
		&cause.Level,
		&cause.ParentID,
		pq.Array(&projectIDs),
		pq.Array(&cause.Centroid),
		&cause.Confidence,
		&cause.Size,
		&cause.Metadata,
		&cause.CreatedAt,
	)
	if err != nil {
		return err
	}

	cause.ProjectIDs, err = parseUUIDs(projectIDs)
	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(values))
	for i, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("error parsing uuid %q: %w", v, err)
		}
		ids[i] = id
	}
	return ids, nil
}
