package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string, calls *int32) context.CancelFunc {
	t.Helper()
	w, err := NewFileWatcher(path, func(string) { atomic.AddInt32(calls, 1) }, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// give fsnotify a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func TestFileWatcher_WriteTriggersOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	var calls int32
	startWatcher(t, path, &calls)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[ ]"), 0644))
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "burst should be debounced into one call")
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	var calls int32
	startWatcher(t, path, &calls)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestFileWatcher_ReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	var calls int32
	startWatcher(t, path, &calls)

	tmp := filepath.Join(dir, ".catalog.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("[{}]"), 0644))
	require.NoError(t, os.Rename(tmp, path))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "nope", "catalog.json"), nil)
	require.NoError(t, err)
	require.Error(t, w.Run(context.Background()))
}
