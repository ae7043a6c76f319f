package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/vidsearch/core"
)

// Embedder produces one vector per input text.
// *embedding.Pipeline satisfies it.
type Embedder interface {
	Embed(ctx context.Context, inputs ...string) ([]core.Vector, error)
}

// Writer stores points, replacing any with the same ID.
// *index.Index satisfies it.
type Writer interface {
	UpsertPoints(ctx context.Context, points []core.Point) error
}

// BatchProcessor recomputes the vectors of batches of points.
type BatchProcessor struct {
	writer   Writer
	embedder Embedder
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(writer Writer, embedder Embedder) *BatchProcessor {
	return &BatchProcessor{
		writer:   writer,
		embedder: embedder,
	}
}

// Process embeds the payload text of every point and writes the points back
// with their new vectors. IDs and payloads are left untouched.
func (bp *BatchProcessor) Process(ctx context.Context, points []core.Point) error {
	if len(points) == 0 {
		return nil
	}

	texts := make([]string, len(points))
	for i, p := range points {
		text, ok := p.Payload[core.PayloadTextKey].(string)
		if !ok || text == "" {
			return fmt.Errorf("%w: point %s has no text", ErrMissingText, p.ID)
		}
		texts[i] = text
	}

	// Retries are handled by the embedder
	vectors, err := bp.embedder.Embed(ctx, texts...)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(points) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(points), len(vectors))
	}

	updated := make([]core.Point, len(points))
	for i, p := range points {
		updated[i] = core.Point{ID: p.ID, Vector: vectors[i], Payload: p.Payload}
	}

	if err := bp.writer.UpsertPoints(ctx, updated); err != nil {
		return fmt.Errorf("failed to update points: %w", err)
	}

	return nil
}
