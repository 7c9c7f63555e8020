package embedding

import (
	"fmt"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/config"
)

// New builds the embedder selected by cfg.Provider, wrapped with an LRU cache when
// cfg.CacheSize > 0. A provider that cannot be initialized is an error; there is no fallback,
// since vectors from a different model would not be comparable with the stored ones.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderONNX:
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case config.ProviderOpenAI:
		e, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:            cfg.OpenAI.APIKey,
			BaseURL:           cfg.OpenAI.BaseURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	case config.ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s embedder: %w", cfg.Provider, err)
	}
	return WithCache(e, cfg.CacheSize), nil
}
