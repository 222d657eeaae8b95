package reduction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/core/embedding"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
)

// ProjectScope computes the cached projections of one scope. The scope is the
// global population when scopeID is nil, otherwise one parent cause. Projects
// without an embedding, or whose embedding width differs from the majority,
// are left out. Scopes with fewer than two usable projects return
// ErrDegenerateInput and should be skipped.
func ProjectScope(scopeID *uuid.UUID, projects []*model.Project, modelVersion string, reducer model.ReducerConfig, outlier model.OutlierConfig) ([]model.Projection, error) {
	usable := UsableProjects(projects)
	if len(usable) < 2 {
		return nil, helper.NewError("project scope", fmt.Errorf("%w: scope %s has %d embedded projects", helper.ErrDegenerateInput, ScopeName(scopeID), len(usable)))
	}

	vectors := make([][]float64, len(usable))
	for i, p := range usable {
		vectors[i] = embedding.ToFloat64(p.Embedding)
	}

	reduced, err := Reduce(vectors, reducer.StorageWidth, reducer)
	if err != nil {
		return nil, helper.NewError("project scope", err)
	}

	displayDims := min(max(reducer.TargetDimensions, 2), 3)
	display := Columns(reduced.Coordinates, displayDims)
	flags := DetectOutliers(display, outlier)
	layout := ScaleLayout(display, flags, reducer, outlier)

	variance := Pad(reduced.ExplainedVariance, reducer.StorageWidth)
	now := time.Now()

	projections := make([]model.Projection, len(usable))
	for i, p := range usable {
		position := Pad(layout.Positions[i], 3)
		projections[i] = model.Projection{
			ScopeID:      scopeID,
			ProjectID:    p.ID,
			Components:   Pad(reduced.Coordinates[i], reducer.StorageWidth),
			Variance:     variance,
			X:            position[0],
			Y:            position[1],
			Z:            position[2],
			IsOutlier:    flags[i],
			Method:       reduced.Method,
			ModelVersion: modelVersion,
			CreatedAt:    now,
		}
	}

	return projections, nil
}

// UsableProjects keeps projects with an embedding of the most common width.
func UsableProjects(projects []*model.Project) []*model.Project {
	widths := map[int]int{}
	for _, p := range projects {
		if p.HasEmbedding() {
			widths[len(p.Embedding)]++
		}
	}

	dominant, count := 0, 0
	for w, c := range widths {
		if c > count || (c == count && w > dominant) {
			dominant, count = w, c
		}
	}

	usable := make([]*model.Project, 0, count)
	for _, p := range projects {
		if p.HasEmbedding() && len(p.Embedding) == dominant {
			usable = append(usable, p)
		}
	}
	return usable
}

// ScopeName renders a scope for logs and skip reasons.
func ScopeName(scopeID *uuid.UUID) string {
	if scopeID == nil {
		return "global"
	}
	return scopeID.String()
}
