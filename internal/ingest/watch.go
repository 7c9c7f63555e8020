package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/watcher"
	"go.uber.org/zap"
)

// Watch runs an initial ingestion and then re-ingests every time the catalog file changes,
// until ctx is cancelled. Re-runs never overlap. A failed run is logged and leaves the
// previous snapshot in place.
func (in *Ingestor) Watch(ctx context.Context, catalogPath, storeDir string, debounce time.Duration) error {
	var mu sync.Mutex
	rerun := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		in.logger.Info("catalog changed, re-ingesting", zap.String("path", path))
		if _, err := in.Run(ctx, path, storeDir); err != nil {
			in.logger.Error("re-ingestion failed", zap.Error(err))
		}
	}

	if _, err := in.Run(ctx, catalogPath, storeDir); err != nil {
		in.logger.Error("initial ingestion failed", zap.Error(err))
	}

	w, err := watcher.NewFileWatcher(catalogPath, rerun,
		watcher.WithLogger(in.logger),
		watcher.WithDebounce(debounce),
	)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
