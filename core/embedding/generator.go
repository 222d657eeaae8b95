package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/siherrmann/causemap/helper"
	"github.com/siherrmann/causemap/model"
	"golang.org/x/sync/errgroup"
)

// EmbedFunc requests an embedding for text from an embedding service.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Item is one entity queued for embedding, identified by ID so results can be
// matched back regardless of completion order.
type Item struct {
	ID   uuid.UUID
	Kind model.EntityKind
	Text string
}

// Generator turns canonical texts into embeddings using an injected service.
type Generator struct {
	embed  EmbedFunc
	config model.EmbeddingConfig
	log    *slog.Logger
}

func NewGenerator(embed EmbedFunc, config model.EmbeddingConfig, logger *slog.Logger) (*Generator, error) {
	if embed == nil {
		return nil, helper.NewError("embedding generator validation", fmt.Errorf("%w: embed function is nil", helper.ErrConfiguration))
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		embed:  embed,
		config: config,
		log:    logger,
	}, nil
}

// Config returns the generator settings.
func (g *Generator) Config() model.EmbeddingConfig {
	return g.config
}

// Generate embeds a single text. Oversized texts are truncated with a warning.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, helper.NewError("generate embedding", helper.ErrEmptyText)
	}
	text = g.truncate(text)

	vector, err := g.embed(ctx, text)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}
	if len(vector) == 0 {
		return nil, helper.NewError("generate embedding", fmt.Errorf("%w: service returned an empty vector", helper.ErrMalformedResponse))
	}
	if g.config.Dimension > 0 && len(vector) != g.config.Dimension {
		return nil, helper.NewError("generate embedding", fmt.Errorf("%w: got %d values, want %d", helper.ErrDimensionMismatch, len(vector), g.config.Dimension))
	}

	return vector, nil
}

// GenerateBatch embeds items in batches of BatchSize with a pause of BatchDelay
// between batches. The result is aligned with items. Items that fail are
// returned as missing embeddings and the batch carries on; cancellation is
// checked between batches and marks the remaining items missing.
func (g *Generator) GenerateBatch(ctx context.Context, items []Item) []model.Embedding {
	results := make([]model.Embedding, len(items))
	batches := (len(items) + g.config.BatchSize - 1) / g.config.BatchSize

	for start, batch := 0, 1; start < len(items); start, batch = start+g.config.BatchSize, batch+1 {
		if start > 0 {
			if err := pause(ctx, g.config.BatchDelay); err != nil {
				g.log.Warn("Embedding run cancelled between batches", slog.Int("remaining", len(items)-start))
				for i := start; i < len(items); i++ {
					results[i] = g.missing(items[i], err)
				}
				return results
			}
		}

		end := min(start+g.config.BatchSize, len(items))

		var group errgroup.Group
		group.SetLimit(g.config.BatchConcurrency)
		for i := start; i < end; i++ {
			group.Go(func() error {
				results[i] = g.generateItem(ctx, items[i])
				return nil
			})
		}
		_ = group.Wait()

		g.log.Info("Processed embedding batch",
			slog.Int("batch", batch),
			slog.Int("batches", batches),
			slog.Int("missing", CountMissing(results[start:end])),
		)
	}

	return results
}

func (g *Generator) generateItem(ctx context.Context, item Item) model.Embedding {
	vector, err := g.Generate(ctx, item.Text)
	if err != nil {
		g.log.Warn("Failed to embed item",
			slog.String("id", item.ID.String()),
			slog.String("kind", string(item.Kind)),
			slog.Any("error", err),
		)
		return g.missing(item, err)
	}

	return model.Embedding{
		ID:     item.ID,
		Kind:   item.Kind,
		Vector: vector,
		Model:  g.config.Model,
	}
}

func (g *Generator) missing(item Item, err error) model.Embedding {
	var placeholder []float32
	if g.config.Dimension > 0 {
		placeholder = make([]float32, g.config.Dimension)
	}
	return model.Embedding{
		ID:      item.ID,
		Kind:    item.Kind,
		Vector:  placeholder,
		Model:   g.config.Model,
		Missing: true,
		Err:     err,
	}
}

func (g *Generator) truncate(text string) string {
	if g.config.MaxTextLength <= 0 || utf8.RuneCountInString(text) <= g.config.MaxTextLength {
		return text
	}

	g.log.Warn("Truncating oversized embedding text",
		slog.Int("length", len(text)),
		slog.Int("estimated_tokens", len(text)/4),
		slog.Int("max_length", g.config.MaxTextLength),
	)

	runes := []rune(text)
	return string(runes[:g.config.MaxTextLength])
}

// CountMissing returns the number of failed embeddings.
func CountMissing(embeddings []model.Embedding) int {
	n := 0
	for _, e := range embeddings {
		if e.IsMissing() {
			n++
		}
	}
	return n
}

func pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
