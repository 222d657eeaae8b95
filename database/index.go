package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/causemap/helper"
)

type IndexType string

const (
	IndexHNSW    IndexType = "hnsw"
	IndexIVFFlat IndexType = "ivfflat"
)

// IndexParams tunes the project embedding index. Zero values pick the
// pgvector defaults; for IVFFlat, Lists defaults to one list per thousand
// embedded projects.
type IndexParams struct {
	M              int `json:"m,omitempty"`
	EfConstruction int `json:"ef_construction,omitempty"`
	Lists          int `json:"lists,omitempty"`
}

// ParseIndexType accepts "hnsw" or "ivfflat".
func ParseIndexType(value string) (IndexType, error) {
	switch IndexType(value) {
	case IndexHNSW, IndexIVFFlat:
		return IndexType(value), nil
	}
	return "", fmt.Errorf("%w: unsupported index type %q (use 'hnsw' or 'ivfflat')", helper.ErrConfiguration, value)
}

// ChangeIndexType rebuilds idx_projects_embedding with the given type.
// Drop and create run in one transaction, so a failed build keeps the old index.
func (h *ProjectsDBHandler) ChangeIndexType(ctx context.Context, indexType IndexType, params IndexParams) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var createIndexSQL string
	switch indexType {
	case IndexHNSW:
		m := orDefaultInt(params.M, 16)
		efConstruction := orDefaultInt(params.EfConstruction, 64)
		if efConstruction < 2*m {
			return helper.NewError("change index type", fmt.Errorf("%w: ef_construction %d must be at least 2*m (%d)", helper.ErrConfiguration, efConstruction, 2*m))
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_projects_embedding ON projects USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case IndexIVFFlat:
		lists := params.Lists
		if lists <= 0 {
			var embedded int
			err = tx.QueryRowContext(ctx, `SELECT count(*) FROM projects WHERE embedding IS NOT NULL`).Scan(&embedded)
			if err != nil {
				return helper.NewError("count embeddings", err)
			}
			lists = max(1, embedded/1000)
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_projects_embedding ON projects USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("%w: unsupported index type %q (use 'hnsw' or 'ivfflat')", helper.ErrConfiguration, indexType))
	}

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_projects_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Rebuilt project embedding index as %s", indexType))

	return nil
}

func orDefaultInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
