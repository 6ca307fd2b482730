package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type recordingImporter struct {
	mutex    sync.Mutex
	imported []string
	err      error
}

func (importer *recordingImporter) ImportLocalFile(_ context.Context, path string, _ *uuid.UUID) (string, error) {
	importer.mutex.Lock()
	defer importer.mutex.Unlock()

	if importer.err != nil {
		return "", importer.err
	}

	importer.imported = append(importer.imported, path)
	return "abcdef1234", nil
}

func (importer *recordingImporter) importedPaths() []string {
	importer.mutex.Lock()
	defer importer.mutex.Unlock()

	return append([]string(nil), importer.imported...)
}

func testConfig(path string) Config {
	return Config{
		Enabled:                   true,
		WatchPath:                 path,
		ForceSyncSeconds:          1,
		RequiredModTimeAgeSeconds: 0,
		IngestionParallelism:      1,
	}
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second * 5)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}

		time.Sleep(time.Millisecond * 20)
	}

	t.Fatal("condition never satisfied")
}

func Test_New_EnabledRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Enabled: true}, &recordingImporter{})
	assert.ErrorContains(t, err, "no watch path")
}

func Test_Run_DisabledReturnsImmediately(t *testing.T) {
	t.Parallel()

	service, err := New(Config{Enabled: false}, &recordingImporter{})
	assert.Nil(t, err)
	assert.Nil(t, service.Run(context.Background()))
}

func Test_Run_ImportsPreExistingFiles(t *testing.T) {
	t.Parallel()
	watchPath := t.TempDir()

	dropped := filepath.Join(watchPath, "dropped.gif")
	assert.Nil(t, os.WriteFile(dropped, []byte("gif-bytes"), 0644))
	assert.Nil(t, os.WriteFile(filepath.Join(watchPath, "notes.txt"), []byte("ignore me"), 0644))

	importer := &recordingImporter{}
	service, err := New(testConfig(watchPath), importer)
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = service.Run(ctx) }()

	waitFor(t, func() bool { return len(importer.importedPaths()) == 1 })
	assert.Equal(t, []string{dropped}, importer.importedPaths())

	// The imported source is removed; the ignored one is untouched.
	waitFor(t, func() bool {
		_, statErr := os.Stat(dropped)
		return os.IsNotExist(statErr)
	})
	assert.FileExists(t, filepath.Join(watchPath, "notes.txt"))
}

func Test_Run_PicksUpNewlyDroppedFiles(t *testing.T) {
	t.Parallel()
	watchPath := t.TempDir()

	importer := &recordingImporter{}
	service, err := New(testConfig(watchPath), importer)
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = service.Run(ctx) }()

	// Give the watcher a moment to attach before dropping the file;
	// the forced rescan would catch it regardless.
	time.Sleep(time.Millisecond * 100)
	dropped := filepath.Join(watchPath, "late.webp")
	assert.Nil(t, os.WriteFile(dropped, []byte("webp-bytes"), 0644))

	waitFor(t, func() bool { return len(importer.importedPaths()) == 1 })
	assert.Equal(t, []string{dropped}, importer.importedPaths())
}

func Test_Run_FailedImportLeavesSourceAndDoesNotRetry(t *testing.T) {
	t.Parallel()
	watchPath := t.TempDir()

	dropped := filepath.Join(watchPath, "broken.mp4")
	assert.Nil(t, os.WriteFile(dropped, []byte("mp4-bytes"), 0644))

	importer := &recordingImporter{err: errors.New("conversion exploded")}
	service, err := New(testConfig(watchPath), importer)
	assert.Nil(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = service.Run(ctx) }()

	// Wait past a forced rescan; the file must survive and stay
	// un-imported rather than loop.
	time.Sleep(time.Millisecond * 1500)
	assert.FileExists(t, dropped)
	assert.Empty(t, importer.importedPaths())
}

func Test_Enqueue_DeduplicatesPaths(t *testing.T) {
	t.Parallel()

	importer := &recordingImporter{}
	service, err := New(testConfig(t.TempDir()), importer)
	assert.Nil(t, err)

	service.enqueue("/drop/a.gif")
	service.enqueue("/drop/a.gif")
	service.enqueue("/drop/b.txt")

	assert.Equal(t, []string{"/drop/a.gif"}, service.pending)
}
