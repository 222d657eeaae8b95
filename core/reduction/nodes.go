package reduction

import (
	"github.com/google/uuid"
	"github.com/siherrmann/causemap/model"
)

// UnassignedColor is drawn for projects without a cause.
const UnassignedColor = "#9ca3af"

// BuildNodes joins projects with their cached projections and causes. Projects
// without a projection in the scope are left out.
func BuildNodes(projects []*model.Project, projections []model.Projection, causes []*model.Cause, dots model.DotSizeConfig) []model.VisualNode {
	byProject := make(map[uuid.UUID]model.Projection, len(projections))
	for _, p := range projections {
		byProject[p.ProjectID] = p
	}
	byCause := make(map[uuid.UUID]*model.Cause, len(causes))
	for _, c := range causes {
		byCause[c.ID] = c
	}

	nodes := make([]model.VisualNode, 0, len(projections))
	for _, p := range projects {
		projection, ok := byProject[p.ID]
		if !ok {
			continue
		}

		node := model.VisualNode{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Stars:       p.Stars,
			Languages:   p.Languages,
			Topics:      p.Topics,
			X:           projection.X,
			Y:           projection.Y,
			Z:           projection.Z,
			Size:        DotSize(p.Stars, dots),
			Color:       UnassignedColor,
			IsOutlier:   projection.IsOutlier,
		}
		if p.CauseID != nil {
			if cause, ok := byCause[*p.CauseID]; ok {
				node.CauseID = &cause.ID
				node.CauseName = cause.Name
				node.Color = cause.Color
			}
		}
		nodes = append(nodes, node)
	}

	return nodes
}
