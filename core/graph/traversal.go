package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/model"
)

// CauseTree defines the parent/child lookups of the cause hierarchy
type CauseTree interface {
	SelectCause(ctx context.Context, id uuid.UUID) (*model.Cause, error)
	SelectCausesByParent(ctx context.Context, parentID uuid.UUID) ([]*model.Cause, error)
}

// TraversalResult contains a cause and its depth below the source
type TraversalResult struct {
	Cause    *model.Cause
	Distance int
	Path     []uuid.UUID // Path from source to this cause
}

// BFS walks the cause hierarchy breadth first from a source cause down to
// maxHops levels. The source itself is the first result.
func BFS(ctx context.Context, tree CauseTree, sourceID uuid.UUID, maxHops int) ([]*TraversalResult, error) {
	source, err := tree.SelectCause(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{sourceID: true}
	queue := []TraversalResult{{
		Cause:    source,
		Distance: 0,
		Path:     []uuid.UUID{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		if current.Distance >= maxHops {
			continue
		}

		children, err := tree.SelectCausesByParent(ctx, current.Cause.ID)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			// Guard against cycles in corrupted data
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true

			newPath := make([]uuid.UUID, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, child.ID)

			queue = append(queue, TraversalResult{
				Cause:    child,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// IDs returns the cause IDs of the traversal results in visiting order.
func IDs(results []*TraversalResult) []uuid.UUID {
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.Cause.ID
	}
	return ids
}
