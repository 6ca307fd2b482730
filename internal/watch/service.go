// Package watch implements the drop-folder auto-importer: media files
// placed in a watched directory are fed through the classify/convert/
// persist tail of the import pipeline and removed from the folder once
// stored.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rjeczalik/notify"
	"github.com/sratabix/gifselector/pkg/logger"
	"github.com/sratabix/gifselector/pkg/worker"
)

var log = logger.Get("Watch")

// The drop-folder accepts the same extensions the remote pipeline
// classifies; anything else is left in place untouched.
var watchedExtensions = map[string]bool{
	".gif":  true,
	".webp": true,
	".mp4":  true,
}

type (
	Config struct {
		// Enabled toggles the watch service entirely; when false Run
		// returns immediately.
		Enabled bool `yaml:"enabled" env:"WATCH_ENABLED" env-default:"false"`

		// WatchPath is the directory watched for dropped media.
		WatchPath string `yaml:"path" env:"WATCH_PATH"`

		// ForceSyncSeconds is the interval at which the directory is
		// rescanned in full, catching files the inotify events missed.
		ForceSyncSeconds int `yaml:"force_sync_seconds" env:"WATCH_FORCE_SYNC" env-default:"30"`

		// RequiredModTimeAgeSeconds is the minimum time since last
		// modification before a file is considered settled enough to
		// import; guards against half-written copies.
		RequiredModTimeAgeSeconds int `yaml:"modtime_threshold_seconds" env:"WATCH_MODTIME_THRESHOLD" env-default:"2"`

		// IngestionParallelism is the number of import workers.
		IngestionParallelism int `yaml:"ingestion_parallelism" env:"WATCH_PARALLELISM" env-default:"1"`
	}

	// Importer is the slice of the import pipeline the watch service
	// needs: persisting a file that is already on the local disk.
	Importer interface {
		ImportLocalFile(ctx context.Context, path string, ownerID *uuid.UUID) (string, error)
	}

	watchService struct {
		*sync.Mutex
		config     Config
		importer   Importer
		workerPool *worker.WorkerPool
		pending    []string
		seen       map[string]bool
	}
)

func New(config Config, importer Importer) (*watchService, error) {
	if config.Enabled && config.WatchPath == "" {
		return nil, fmt.Errorf("watch service is enabled but no watch path is configured")
	}

	return &watchService{
		Mutex:      &sync.Mutex{},
		config:     config,
		importer:   importer,
		workerPool: worker.NewWorkerPool(),
		pending:    make([]string, 0),
		seen:       make(map[string]bool),
	}, nil
}

// Run starts the file system watcher, the forced rescan ticker and the
// import workers, blocking until the context is cancelled.
func (service *watchService) Run(ctx context.Context) error {
	if !service.config.Enabled {
		log.Emit(logger.INFO, "Drop-folder watching disabled\n")
		return nil
	}

	if err := os.MkdirAll(service.config.WatchPath, os.ModeDir|os.ModePerm); err != nil {
		return fmt.Errorf("failed to create watch path %s: %w", service.config.WatchPath, err)
	}

	parallelism := service.config.IngestionParallelism
	if parallelism < 1 {
		parallelism = 1
	}
	for i := 0; i < parallelism; i++ {
		service.workerPool.PushWorker(worker.NewWorker(fmt.Sprintf("WatchImport:%d", i), func(w worker.Worker) (bool, error) {
			return service.importNext(ctx)
		}))
	}
	if err := service.workerPool.Start(); err != nil {
		return err
	}
	defer service.workerPool.Close()

	watchChannel := make(chan notify.EventInfo, 100)
	if err := notify.Watch(service.config.WatchPath, watchChannel, notify.InCloseWrite, notify.InMovedTo); err != nil {
		return fmt.Errorf("failed to watch %s: %w", service.config.WatchPath, err)
	}
	defer notify.Stop(watchChannel)

	forceSyncTicker := time.NewTicker(time.Duration(service.config.ForceSyncSeconds) * time.Second)
	defer forceSyncTicker.Stop()

	service.DiscoverNewFiles()
	for {
		select {
		case ev := <-watchChannel:
			service.enqueue(ev.Path())
		case <-forceSyncTicker.C:
			service.DiscoverNewFiles()
		case <-ctx.Done():
			return nil
		}
	}
}

// DiscoverNewFiles scans the watch path for settled media files that
// the event stream has not already queued.
func (service *watchService) DiscoverNewFiles() {
	threshold := time.Duration(service.config.RequiredModTimeAgeSeconds) * time.Second
	err := filepath.WalkDir(service.config.WatchPath, func(path string, dir fs.DirEntry, err error) error {
		if err != nil || dir.IsDir() {
			return err
		}

		info, err := dir.Info()
		if err != nil {
			return nil
		}
		if time.Since(info.ModTime()) < threshold {
			return nil
		}

		service.enqueue(path)
		return nil
	})
	if err != nil {
		log.Emit(logger.WARNING, "Forced rescan of %s failed: %v\n", service.config.WatchPath, err)
	}
}

// enqueue adds the path to the pending queue if it's a supported media
// file that hasn't already been picked up, and wakes the workers.
func (service *watchService) enqueue(path string) {
	if !watchedExtensions[strings.ToLower(filepath.Ext(path))] {
		return
	}

	service.Lock()
	defer service.Unlock()

	if service.seen[path] {
		return
	}

	service.seen[path] = true
	service.pending = append(service.pending, path)
	log.Emit(logger.NEW, "Queued dropped file %s for import\n", filepath.Base(path))

	if err := service.workerPool.WakeupWorkers(); err != nil {
		log.Emit(logger.WARNING, "Failed to wake import workers: %v\n", err)
	}
}

// importNext claims the next pending file and imports it, removing the
// source on success. Failures leave the source in place but the file
// stays marked as seen so it is not retried in a loop.
func (service *watchService) importNext(ctx context.Context) (bool, error) {
	path, ok := service.claim()
	if !ok {
		return false, nil
	}

	slug, err := service.importer.ImportLocalFile(ctx, path, nil)
	if err != nil {
		log.Emit(logger.ERROR, "Failed to import dropped file %s: %v\n", filepath.Base(path), err)
		return true, nil
	}

	log.Emit(logger.SUCCESS, "Imported dropped file %s as %s\n", filepath.Base(path), slug)
	if err := os.Remove(path); err != nil {
		log.Emit(logger.WARNING, "Failed to remove imported file %s: %v\n", path, err)
	}

	return true, nil
}

func (service *watchService) claim() (string, bool) {
	service.Lock()
	defer service.Unlock()

	if len(service.pending) == 0 {
		return "", false
	}

	path := service.pending[0]
	service.pending = service.pending[1:]
	return path, true
}
