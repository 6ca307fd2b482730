package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sratabix/gifselector/internal/api"
	"github.com/sratabix/gifselector/internal/database"
	"github.com/sratabix/gifselector/internal/event"
	"github.com/sratabix/gifselector/internal/importer"
	"github.com/sratabix/gifselector/internal/watch"
	"github.com/sratabix/gifselector/pkg/docker"
	"github.com/sratabix/gifselector/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}
)

// gifselectorImpl is the top-level object for the server, responsible
// for initialising the embedded support services, stores, the import
// pipeline and the HTTP gateway.
type gifselectorImpl struct {
	eventBus      event.EventCoordinator
	config        GifselectorConfig
	dockerManager docker.Manager
}

func New(config GifselectorConfig) *gifselectorImpl {
	log.Emit(logger.DEBUG, "Bootstrapping services using config: %#v\n", config)
	return &gifselectorImpl{
		eventBus: event.New(),
		config:   config,
	}
}

// Run brings up all required services and connections (embedded Docker
// services, database, import pipeline, drop-folder watcher and the REST
// gateway) and does not return until the provided context is cancelled
// or a service crashes.
func (app *gifselectorImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	if err := app.initialiseDockerServices(ctx, crashHandler); err != nil {
		return err
	}
	if app.dockerManager != nil {
		defer app.dockerManager.Shutdown(time.Second * 10)
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	db := database.New()
	if err := db.Connect(app.config.Database); err != nil {
		return err
	}

	store, err := NewStoreOrchestrator(db, app.eventBus, app.config.Importer.StoragePath)
	if err != nil {
		return err
	}
	if err := store.EnsureDefaultUser(app.config.DefaultUser.Username, app.config.DefaultUser.Password); err != nil {
		return err
	}

	runner := importer.NewExecRunner(app.config.Importer.CommandTimeout())
	importService, err := importer.New(
		app.config.Importer,
		importer.NewDownloaderAcquirer(app.config.Importer.DownloaderBin, runner),
		importer.NewFallbackAcquirer(nil, app.config.Importer.MaxFileSizeBytes),
		importer.NewChainConverter(app.config.Importer, runner),
		store,
		app.eventBus,
	)
	if err != nil {
		return fmt.Errorf("failed to construct import service: %w", err)
	}

	watchService, err := watch.New(app.config.Watch, importService)
	if err != nil {
		return fmt.Errorf("failed to construct watch service: %w", err)
	}

	restGateway := api.NewRestGateway(&app.config.API, importService, store, app.eventBus, app.config.Importer.MaxFileSizeBytes)

	wg := &sync.WaitGroup{}
	app.spawnAsyncService(ctx, wg, watchService, "watch-service", crashHandler)
	app.spawnAsyncService(ctx, wg, restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService runs the provided service as its own goroutine,
// ensuring the service waitgroup is updated correctly and that a panic
// or error is routed through the crash handler.
func (app *gifselectorImpl) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(ctx); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}

// initialiseDockerServices brings up the embedded PostgreSQL container
// when enabled; a crash of the container after start-up is treated the
// same as any other service crash.
func (app *gifselectorImpl) initialiseDockerServices(ctx context.Context, crashHandler func(string, error)) error {
	if !app.config.Services.EnablePostgres {
		return nil
	}

	log.Emit(logger.INFO, "Initialising embedded database...\n")
	dockerManager, err := docker.NewManager()
	if err != nil {
		return err
	}
	app.dockerManager = dockerManager

	dbErrors := make(chan error, 1)
	if _, err := database.InitialiseDockerDatabase(dockerManager, app.config.Database, dbErrors); err != nil {
		return err
	}

	go func() {
		select {
		case err := <-dbErrors:
			crashHandler("docker-postgres", err)
		case <-ctx.Done():
		}
	}()

	return nil
}
