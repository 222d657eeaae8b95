package reduction

import (
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNodes(t *testing.T) {
	cause := &model.Cause{ID: uuid.New(), Name: "Clean Water", Color: "#06b6d4"}
	assigned := &model.Project{ID: uuid.New(), Name: "wells", Stars: 999, CauseID: &cause.ID}
	loose := &model.Project{ID: uuid.New(), Name: "loose", Stars: 0}
	hidden := &model.Project{ID: uuid.New(), Name: "hidden"}

	projections := []model.Projection{
		{ProjectID: assigned.ID, X: 1, Y: 2, Z: 3},
		{ProjectID: loose.ID, X: -1, IsOutlier: true},
	}

	nodes := BuildNodes([]*model.Project{assigned, loose, hidden}, projections, []*model.Cause{cause}, model.DefaultDotSizeConfig())
	require.Len(t, nodes, 2, "Expected projects without a projection to be left out")

	t.Run("Take color and name from the cause", func(t *testing.T) {
		assert.Equal(t, "Clean Water", nodes[0].CauseName)
		assert.Equal(t, "#06b6d4", nodes[0].Color)
		assert.Equal(t, 3.0, nodes[0].Z)
		assert.InDelta(t, 13.0, nodes[0].Size, 1e-9, "Expected 4 + log10(1000) * 3")
	})

	t.Run("Draw unassigned projects grey", func(t *testing.T) {
		assert.Equal(t, UnassignedColor, nodes[1].Color)
		assert.Nil(t, nodes[1].CauseID)
		assert.True(t, nodes[1].IsOutlier)
		assert.Equal(t, 4.0, nodes[1].Size)
	})
}
