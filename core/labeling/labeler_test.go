package labeling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return helper.NewLogger(io.Discard, slog.LevelDebug)
}

func solarProjects(n int) []*model.Project {
	projects := make([]*model.Project, n)
	for i := range projects {
		projects[i] = &model.Project{
			ID:        uuid.New(),
			Name:      fmt.Sprintf("solar-%d", i),
			Stars:     (i + 1) * 10,
			Languages: []string{"Go"},
			Tags:      []string{"solar", "energy", "grid"},
		}
	}
	return projects
}

func cannedReply(reply string, err error) CompleteFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return reply, err
	}
}

func TestFromMetadata(t *testing.T) {
	labeler := NewLabeler(nil, model.DefaultLabelerConfig(), testLogger())

	t.Run("Name a solar cluster from its tags", func(t *testing.T) {
		cause := labeler.FromMetadata(Request{Index: 0, Level: 0, Projects: solarProjects(12)})

		assert.True(t, strings.Contains(cause.Name, "Solar") || strings.Contains(cause.Name, "Energy"), "Expected name to contain Solar or Energy, got %q", cause.Name)
		assert.NotEmpty(t, cause.Keywords)
		for _, k := range cause.Keywords {
			assert.Contains(t, []string{"solar", "energy", "grid"}, k)
		}
		assert.GreaterOrEqual(t, cause.Confidence, 0.3)
		assert.LessOrEqual(t, cause.Confidence, 0.7)
		assert.Equal(t, model.LabelSourceMetadata, cause.Metadata.LabelSource)
		assert.Equal(t, 12, cause.Size)
		assert.Len(t, cause.ProjectIDs, 12)
	})

	t.Run("Ignore stoplisted and short terms", func(t *testing.T) {
		projects := []*model.Project{
			{Topics: []string{"javascript", "api", "ml", "public-health"}},
			{Topics: []string{"JavaScript", "web", "Public_Health", "epidemiology"}},
		}
		cause := labeler.FromMetadata(Request{Projects: projects})

		assert.Equal(t, "Public Health", cause.Name)
		assert.Equal(t, []string{"public health", "epidemiology"}, cause.Keywords)
	})

	t.Run("Combine the two top terms for subcauses", func(t *testing.T) {
		cause := labeler.FromMetadata(Request{Level: 1, Projects: solarProjects(6)})
		assert.Equal(t, "Energy Grid", cause.Name)
	})

	t.Run("Add technology to a single term subcause", func(t *testing.T) {
		projects := []*model.Project{{Topics: []string{"wildfire"}}, {Topics: []string{"wildfire"}}}
		cause := labeler.FromMetadata(Request{Level: 1, Projects: projects})
		assert.Equal(t, "Wildfire Technology", cause.Name)
	})

	t.Run("Fall back to a generic name without usable terms", func(t *testing.T) {
		projects := []*model.Project{{Topics: []string{"react", "js"}}, {}}
		cause := labeler.FromMetadata(Request{Index: 4, Projects: projects})

		assert.Equal(t, "Cause Area 5", cause.Name)
		assert.Equal(t, 0.3, cause.Confidence)
		assert.Equal(t, model.MaturityEmerging, cause.Metadata.Maturity)
		assert.Equal(t, model.LabelSourceFallback, cause.Metadata.LabelSource)
	})
}

func TestAggregate(t *testing.T) {
	labeler := NewLabeler(nil, model.DefaultLabelerConfig(), testLogger())

	t.Run("Classify popular clusters as mature", func(t *testing.T) {
		projects := []*model.Project{
			{Stars: 3000, Languages: []string{"Go", "Rust"}},
			{Stars: 1000, Languages: []string{"Go"}},
		}
		metadata := labeler.Aggregate(projects)

		assert.Equal(t, 2000.0, metadata.AvgStars)
		assert.Equal(t, model.MaturityMature, metadata.Maturity)
		assert.Equal(t, []string{"Go", "Rust"}, metadata.TopLanguages)
		assert.Equal(t, "global", metadata.GeographicScope)
	})

	t.Run("Classify small clusters as growing", func(t *testing.T) {
		metadata := labeler.Aggregate(solarProjects(3))
		assert.Equal(t, model.MaturityGrowing, metadata.Maturity)
	})
}

func TestLabel(t *testing.T) {
	ctx := context.Background()

	t.Run("Use the language model for top level causes", func(t *testing.T) {
		reply := "```json\n{\"name\": \"Community Solar\", \"description\": \"Tools for shared solar.\", \"keywords\": [\"solar\", \"community\"], \"confidence\": 0.9}\n```"
		labeler := NewLabeler(cannedReply(reply, nil), model.DefaultLabelerConfig(), testLogger())

		cause := labeler.Label(ctx, Request{Level: 0, Projects: solarProjects(4)})

		assert.Equal(t, "Community Solar", cause.Name)
		assert.Equal(t, "Tools for shared solar.", cause.Description)
		assert.Equal(t, []string{"solar", "community"}, cause.Keywords)
		assert.Equal(t, 0.9, cause.Confidence)
		assert.Equal(t, model.LabelSourceLLM, cause.Metadata.LabelSource)
	})

	t.Run("Default the confidence and keywords of a sparse reply", func(t *testing.T) {
		labeler := NewLabeler(cannedReply(`{"name": "Grid Resilience"}`, nil), model.DefaultLabelerConfig(), testLogger())

		cause := labeler.Label(ctx, Request{Level: 0, Projects: solarProjects(4)})

		assert.Equal(t, "Grid Resilience", cause.Name)
		assert.Equal(t, 0.8, cause.Confidence)
		assert.Equal(t, []string{"energy", "grid", "solar"}, cause.Keywords)
	})

	t.Run("Clean blank and duplicate keywords", func(t *testing.T) {
		reply := `{"name": "Community Solar", "keywords": ["  Solar ", "", "solar", "Micro-Grid", "   "]}`
		labeler := NewLabeler(cannedReply(reply, nil), model.DefaultLabelerConfig(), testLogger())

		cause := labeler.Label(ctx, Request{Level: 0, Projects: solarProjects(4)})

		assert.Equal(t, []string{"solar", "micro grid"}, cause.Keywords)
	})

	t.Run("Keep metadata keywords when the model sends only blanks", func(t *testing.T) {
		labeler := NewLabeler(cannedReply(`{"name": "Grid Resilience", "keywords": ["", "  "]}`, nil), model.DefaultLabelerConfig(), testLogger())

		cause := labeler.Label(ctx, Request{Level: 0, Projects: solarProjects(4)})

		assert.Equal(t, []string{"energy", "grid", "solar"}, cause.Keywords)
	})

	t.Run("Clamp a reported confidence above one", func(t *testing.T) {
		labeler := NewLabeler(cannedReply(`{"name": "X", "confidence": 7}`, nil), model.DefaultLabelerConfig(), testLogger())
		cause := labeler.Label(ctx, Request{Level: 0, Projects: solarProjects(2)})
		assert.Equal(t, 1.0, cause.Confidence)
	})

	t.Run("Fall back to metadata on malformed replies", func(t *testing.T) {
		labeler := NewLabeler(cannedReply("I think these are about energy.", nil), model.DefaultLabelerConfig(), testLogger())

		cause := labeler.Label(ctx, Request{Level: 0, Projects: solarProjects(12)})

		assert.Equal(t, "Energy", cause.Name)
		assert.Equal(t, model.LabelSourceMetadata, cause.Metadata.LabelSource)
	})

	t.Run("Fall back to metadata on service errors", func(t *testing.T) {
		err := fmt.Errorf("%w: status 429", helper.ErrTransientService)
		labeler := NewLabeler(cannedReply("", err), model.DefaultLabelerConfig(), testLogger())

		cause := labeler.Label(ctx, Request{Level: 0, Projects: solarProjects(12)})

		assert.NotEmpty(t, cause.Name)
		assert.Equal(t, model.LabelSourceMetadata, cause.Metadata.LabelSource)
	})

	t.Run("Skip the language model for small subcauses", func(t *testing.T) {
		var calls atomic.Int32
		complete := func(ctx context.Context, prompt string) (string, error) {
			calls.Add(1)
			return `{"name": "Should not be used"}`, nil
		}
		labeler := NewLabeler(complete, model.DefaultLabelerConfig(), testLogger())

		cause := labeler.Label(ctx, Request{Level: 1, Projects: solarProjects(6)})

		assert.Equal(t, int32(0), calls.Load())
		assert.Equal(t, "Energy Grid", cause.Name)
	})

	t.Run("Use the language model for large subcauses", func(t *testing.T) {
		labeler := NewLabeler(cannedReply(`{"name": "Rooftop Solar"}`, nil), model.DefaultLabelerConfig(), testLogger())
		cause := labeler.Label(ctx, Request{Level: 1, Projects: solarProjects(11)})
		assert.Equal(t, "Rooftop Solar", cause.Name)
	})
}

func TestLabelAll(t *testing.T) {
	t.Run("Bound concurrent language model calls", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		var mu sync.Mutex
		seen := map[string]bool{}
		complete := func(ctx context.Context, prompt string) (string, error) {
			current := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				old := peak.Load()
				if current <= old || peak.CompareAndSwap(old, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			seen[prompt] = true
			mu.Unlock()
			return `{"name": "Labeled"}`, nil
		}
		labeler := NewLabeler(complete, model.DefaultLabelerConfig(), testLogger())

		requests := make([]Request, 9)
		for i := range requests {
			requests[i] = Request{Index: i, Projects: solarProjects(2)}
		}
		causes := labeler.LabelAll(context.Background(), requests)

		require.Len(t, causes, 9)
		assert.LessOrEqual(t, peak.Load(), int32(3), "Expected at most three concurrent calls")
		for i, cause := range causes {
			assert.Equal(t, Color(i), cause.Color, "Expected results aligned with requests")
		}
	})

	t.Run("Never fail the run", func(t *testing.T) {
		labeler := NewLabeler(cannedReply("", errors.New("boom")), model.DefaultLabelerConfig(), testLogger())
		causes := labeler.LabelAll(context.Background(), []Request{{Index: 0}, {Index: 1, Projects: solarProjects(3)}})

		require.Len(t, causes, 2)
		for _, cause := range causes {
			assert.NotEmpty(t, cause.Name)
		}
	})
}

func TestColor(t *testing.T) {
	t.Run("Cycle through the palette", func(t *testing.T) {
		assert.Equal(t, "#ef4444", Color(0))
		assert.Equal(t, Color(0), Color(len(Palette)))
	})
}
