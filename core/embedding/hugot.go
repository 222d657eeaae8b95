package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/causemap/helper"
)

// DefaultLocalModel produces 384-dimensional sentence embeddings.
const DefaultLocalModel = "sentence-transformers/all-MiniLM-L6-v2"

// NewHugotEmbedder runs a sentence-transformer in process so embeddings can be
// generated without an external service. The returned close function releases
// the session.
func NewHugotEmbedder(modelName string) (EmbedFunc, func() error, error) {
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "causemap-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	// the go backend session is not safe for concurrent runs
	var mu sync.Mutex

	embed := func(ctx context.Context, text string) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mu.Lock()
		result, err := sentencePipeline.RunPipeline([]string{text})
		mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("%w: no embedding generated", helper.ErrMalformedResponse)
		}

		return result.Embeddings[0], nil
	}

	return embed, session.Destroy, nil
}
