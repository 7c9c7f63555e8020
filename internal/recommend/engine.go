// Package recommend ranks catalog assessments against a job description.
//
// An Engine owns one loaded vector store and one embedder. It never mutates either after
// construction, so a single Engine serves any number of concurrent Recommend calls.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/embedding"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/metrics"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/vector"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/pkg/utils"
	"go.uber.org/zap"
)

// Engine answers recommend queries against a loaded store.
type Engine struct {
	store    *vector.Store
	embedder embedding.Embedder
	model    string
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records query latency and outcomes on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithModelName names the embedding model in use. A store built with a different model
// is still served, with a warning.
func WithModelName(name string) Option {
	return func(e *Engine) { e.model = name }
}

// NewEngine checks store against embedder and returns an engine over them.
// A misaligned store, or an embedder whose dimension differs from the store's, is an
// integrity error.
func NewEngine(store *vector.Store, embedder embedding.Embedder, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, errors.New("recommend: embedder is required")
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{store: store, embedder: embedder}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.LoggerOrNop(e.logger)

	if d := embedder.Dimensions(); d > 0 && store.Dimensions() > 0 && d != store.Dimensions() {
		return nil, fmt.Errorf("embedder does not match store: %w",
			&vector.DimensionMismatchError{Expected: store.Dimensions(), Actual: d})
	}
	if m := store.Manifest(); m != nil && e.model != "" && m.EmbeddingModel != "" && m.EmbeddingModel != e.model {
		e.logger.Warn("store was built with a different embedding model",
			zap.String("store_model", m.EmbeddingModel),
			zap.String("model", e.model),
		)
	}
	e.metrics.SetStore(store.Len(), store.Dimensions())
	e.logger.Info("recommend engine ready",
		zap.Int("records", store.Len()),
		zap.Int("dimensions", store.Dimensions()),
	)
	return e, nil
}

// Open loads the store in dir and builds an engine over it.
func Open(ctx context.Context, dir string, embedder embedding.Embedder, opts ...Option) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store, err := vector.Load(dir)
	if err != nil {
		return nil, err
	}
	return NewEngine(store, embedder, opts...)
}

// Store returns the loaded store. It must be treated as read-only.
func (e *Engine) Store() *vector.Store {
	return e.store
}

// Recommend returns up to topK assessments ranked by cosine similarity to jobDescription,
// best first. Equal scores keep catalog order. topK <= 0 and an empty store both give an
// empty result without calling the embedder. jobDescription is embedded as given.
func (e *Engine) Recommend(ctx context.Context, jobDescription string, topK int) ([]models.QueryResult, error) {
	started := time.Now()
	if topK <= 0 || e.store.Len() == 0 {
		e.metrics.ObserveRecommend(metrics.OutcomeEmpty, time.Since(started))
		return []models.QueryResult{}, nil
	}

	results, err := e.recommend(ctx, jobDescription, topK)
	e.metrics.ObserveRecommend(outcome(err), time.Since(started))
	if err != nil {
		e.logger.Warn("recommend failed", zap.Error(err))
		return nil, err
	}
	return results, nil
}

func (e *Engine) recommend(ctx context.Context, jobDescription string, topK int) ([]models.QueryResult, error) {
	embedStarted := time.Now()
	raw, err := e.embedder.Embed(ctx, jobDescription)
	e.metrics.ObserveEmbed(metrics.EmbedQuery, time.Since(embedStarted))
	if err != nil {
		if !errors.Is(err, embedding.ErrUpstream) {
			err = embedding.NewUpstreamError("query", err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.store.Search(utils.Normalized(raw), topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]models.QueryResult, len(hits))
	for i, h := range hits {
		r := e.store.Record(h.Index)
		results[i] = models.QueryResult{
			Name:     r.Name,
			URL:      r.URL,
			TestType: append([]string(nil), r.TestType...),
			Score:    h.Score,
		}
	}
	return results, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, vector.ErrIntegrity):
		return metrics.OutcomeIntegrity
	case errors.Is(err, embedding.ErrUpstream):
		return metrics.OutcomeUpstream
	default:
		return metrics.OutcomeError
	}
}
