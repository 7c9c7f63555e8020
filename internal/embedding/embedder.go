// Package embedding provides the text embedding capability used by ingestion and retrieval.
package embedding

import "context"

// Embedder produces vector embeddings for text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the output dimension, or 0 when the provider decides it.
	Dimensions() int
	Close() error
}
