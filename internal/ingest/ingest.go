// Package ingest turns a raw catalog into a vector store snapshot.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/catalog"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/embedding"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/metrics"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/vector"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ingestor embeds catalog records and persists them as a vector store.
type Ingestor struct {
	embedder    embedding.Embedder
	model       string
	batchSize   int
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Recorder
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) IngestorOption {
	return func(in *Ingestor) { in.logger = l }
}

// WithBatchSize sets how many records are embedded per EmbedBatch call.
func WithBatchSize(n int) IngestorOption {
	return func(in *Ingestor) {
		if n > 0 {
			in.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches may be in flight at once.
func WithConcurrency(n int) IngestorOption {
	return func(in *Ingestor) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// WithMetrics records the latency of each EmbedBatch call on r.
func WithMetrics(r *metrics.Recorder) IngestorOption {
	return func(in *Ingestor) { in.metrics = r }
}

// WithModelName records the embedding model in the snapshot manifest.
func WithModelName(name string) IngestorOption {
	return func(in *Ingestor) { in.model = name }
}

// NewIngestor creates an ingestor that embeds with embedder.
func NewIngestor(embedder embedding.Embedder, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		embedder:    embedder,
		batchSize:   32,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = utils.LoggerOrNop(in.logger)
	return in
}

// Build embeds every record and returns the resulting in-memory store, rows in record order.
// It fails without a store if any record is invalid, any embedding call fails, or the
// embedder returns vectors of inconsistent dimension.
func (in *Ingestor) Build(ctx context.Context, records []models.CatalogRecord) (*vector.Store, error) {
	if err := catalog.Validate(records); err != nil {
		return nil, err
	}
	texts := catalog.CompositeTexts(records)
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for start := 0; start < len(texts); start += in.batchSize {
		start, end := start, min(start+in.batchSize, len(texts))
		g.Go(func() error {
			embedStarted := time.Now()
			batch, err := in.embedder.EmbedBatch(gctx, texts[start:end])
			in.metrics.ObserveEmbed(metrics.EmbedBatch, time.Since(embedStarted))
			if err != nil {
				return fmt.Errorf("embed records %d-%d: %w", start, end-1, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embed records %d-%d: %w", start, end-1,
					embedding.NewUpstreamError("ingest", fmt.Errorf("got %d vectors for %d texts", len(batch), end-start)))
			}
			for i, v := range batch {
				vectors[start+i] = utils.Normalized(v)
			}
			in.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end-1))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dimensions := in.embedder.Dimensions()
	if dimensions == 0 && len(vectors) > 0 {
		dimensions = len(vectors[0])
	}
	store, err := vector.NewStore(dimensions, vectors, records)
	if err != nil {
		return nil, fmt.Errorf("assemble store: %w", err)
	}
	return store, nil
}

// Run loads the catalog at catalogPath, builds the store and saves it to storeDir,
// replacing any previous snapshot. Nothing is written unless every step before saving succeeds.
func (in *Ingestor) Run(ctx context.Context, catalogPath, storeDir string) (*vector.Manifest, error) {
	started := time.Now()
	records, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, err
	}
	in.logger.Info("catalog loaded", zap.String("path", catalogPath), zap.Int("records", len(records)))

	store, err := in.Build(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("ingestion aborted: %w", err)
	}
	manifest, err := vector.Save(storeDir, store, in.model)
	if err != nil {
		return nil, fmt.Errorf("save store: %w", err)
	}
	in.logger.Info("vector store written",
		zap.String("dir", storeDir),
		zap.String("snapshot_id", manifest.SnapshotID),
		zap.Int("count", manifest.Count),
		zap.Int("dimensions", manifest.Dimensions),
		zap.Duration("elapsed", time.Since(started)),
	)
	return manifest, nil
}
