package labeling

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/model"
	"golang.org/x/sync/errgroup"
)

// CompleteFunc sends a prompt to a language model and returns its text reply.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// Palette holds the cause colors, assigned by cause index.
var Palette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e", "#10b981", "#06b6d4",
	"#3b82f6", "#6366f1", "#8b5cf6", "#d946ef", "#ec4899", "#f43f5e",
}

// Color returns the palette color for a cause index.
func Color(index int) string {
	if index < 0 {
		index = -index
	}
	return Palette[index%len(Palette)]
}

// Request is one cluster to label. Index numbers the cause within the run and
// picks its color.
type Request struct {
	Index    int
	Level    int
	ParentID *uuid.UUID
	Centroid []float64
	Projects []*model.Project
}

// Labeler names clusters. It never fails: the language model path falls back
// to metadata, and metadata falls back to a generic "Cause Area N".
type Labeler struct {
	complete CompleteFunc
	config   model.LabelerConfig
	stoplist map[string]bool
	log      *slog.Logger
}

// NewLabeler creates a labeler. A nil complete function disables the
// language model path.
func NewLabeler(complete CompleteFunc, config model.LabelerConfig, logger *slog.Logger) *Labeler {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	stoplist := make(map[string]bool, len(config.Stoplist))
	for _, term := range config.Stoplist {
		stoplist[normalizeTerm(term)] = true
	}

	return &Labeler{
		complete: complete,
		config:   config,
		stoplist: stoplist,
		log:      logger,
	}
}

// Label names one cluster.
func (l *Labeler) Label(ctx context.Context, req Request) *model.Cause {
	cause := l.FromMetadata(req)
	if !l.useLanguageModel(req) {
		return cause
	}

	labeled, err := l.fromLanguageModel(ctx, req, cause)
	if err != nil {
		l.log.Warn("Falling back to metadata label",
			slog.Int("index", req.Index),
			slog.Int("level", req.Level),
			slog.String("name", cause.Name),
			slog.Any("error", err),
		)
		return cause
	}
	return labeled
}

// LabelAll labels clusters with at most config.Concurrency running at once.
// The result is aligned with reqs.
func (l *Labeler) LabelAll(ctx context.Context, reqs []Request) []*model.Cause {
	causes := make([]*model.Cause, len(reqs))

	var group errgroup.Group
	group.SetLimit(l.config.Concurrency)
	for i, req := range reqs {
		group.Go(func() error {
			causes[i] = l.Label(ctx, req)
			return nil
		})
	}
	_ = group.Wait()

	return causes
}

func (l *Labeler) useLanguageModel(req Request) bool {
	return l.complete != nil && (req.Level == 0 || len(req.Projects) > l.config.LLMSizeThreshold)
}

func newCause(req Request) *model.Cause {
	ids := make([]uuid.UUID, len(req.Projects))
	for i, p := range req.Projects {
		ids[i] = p.ID
	}

	return &model.Cause{
		ID:         uuid.New(),
		Color:      Color(req.Index),
		Level:      req.Level,
		ParentID:   req.ParentID,
		ProjectIDs: ids,
		Centroid:   req.Centroid,
		Size:       len(req.Projects),
		CreatedAt:  time.Now(),
	}
}
