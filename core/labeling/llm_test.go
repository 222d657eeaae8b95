package labeling

import (
	"fmt"
	"testing"

	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	projects := make([]*model.Project, 20)
	for i := range projects {
		projects[i] = &model.Project{Name: fmt.Sprintf("p%d", i), Stars: i}
	}

	t.Run("Mix the most popular with the rest", func(t *testing.T) {
		sample := Sample(projects, 8, 0.6)

		require.Len(t, sample, 8)
		for i, stars := range []int{19, 18, 17, 16} {
			assert.Equal(t, stars, sample[i].Stars, "Expected the most popular first")
		}
		assert.Less(t, sample[7].Stars, 10, "Expected the tail to reach less popular projects")
	})

	t.Run("Return every project of a small cluster", func(t *testing.T) {
		assert.Len(t, Sample(projects[:5], 8, 0.6), 5)
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Run("List the sampled projects and ask for JSON", func(t *testing.T) {
		sample := []*model.Project{{Name: "sunspot", Stars: 42, Description: "Solar forecasting", Topics: []string{"solar"}}}
		prompt := BuildPrompt(Request{Level: 1, Projects: sample}, sample, []string{"solar"})

		assert.Contains(t, prompt, "1. sunspot (42 stars)")
		assert.Contains(t, prompt, "Description: Solar forecasting")
		assert.Contains(t, prompt, "Frequent keywords: solar")
		assert.Contains(t, prompt, "subcause")
		assert.Contains(t, prompt, `"confidence"`)
	})
}

func TestParseLabel(t *testing.T) {
	t.Run("Parse a reply wrapped in prose", func(t *testing.T) {
		label, err := ParseLabel(`Sure! {"name": "Open Health", "keywords": ["health"]} Hope this helps.`)
		require.NoError(t, err)
		assert.Equal(t, "Open Health", label.Name)
		assert.Nil(t, label.Confidence)
	})

	t.Run("Reject replies without JSON", func(t *testing.T) {
		_, err := ParseLabel("no json here")
		assert.ErrorIs(t, err, helper.ErrMalformedResponse)
	})

	t.Run("Reject invalid JSON", func(t *testing.T) {
		_, err := ParseLabel(`{"name": "x",}`)
		assert.ErrorIs(t, err, helper.ErrMalformedResponse)
	})

	t.Run("Reject a reply without name", func(t *testing.T) {
		_, err := ParseLabel(`{"description": "nameless"}`)
		assert.ErrorIs(t, err, helper.ErrMalformedResponse)
	})
}
