// Package docker provides utilities for creating, spawning and monitoring
// docker containers locally. It is used to provide supporting services,
// such as the PostgreSQL database, without polluting the host system.
package docker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/docker/client"
	"github.com/sratabix/gifselector/pkg/logger"
)

var dockerLogger = logger.Get("Docker")

type Manager interface {
	SpawnContainer(Container) error
	Shutdown(timeout time.Duration)
	WaitForContainer(container Container, statuses ...ContainerStatus) (ContainerStatus, error)
}

type containerStatusUpdate struct {
	containerLabel string
	status         ContainerStatus
}

type manager struct {
	mutex       sync.Mutex
	containers  map[string]Container
	subscribers []chan containerStatusUpdate
	cli         *client.Client
	ctx         context.Context
	ctxCancel   context.CancelFunc
	wg          sync.WaitGroup
}

func NewManager() (Manager, error) {
	c, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to construct docker client: %w", err)
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	return &manager{
		containers: make(map[string]Container),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		cli:        c,
	}, nil
}

func (docker *manager) SpawnContainer(container Container) error {
	docker.mutex.Lock()
	if _, ok := docker.containers[container.Label()]; ok {
		docker.mutex.Unlock()
		return fmt.Errorf("cannot spawn container %s as label is already in use", container)
	}
	docker.containers[container.Label()] = container
	docker.mutex.Unlock()

	docker.wg.Add(1)
	if err := container.Start(docker.ctx, docker.cli); err != nil {
		container.Close(docker.ctx, docker.cli, time.Second*10)
		docker.wg.Done()
		return err
	}

	go docker.monitorContainer(container)

	dockerLogger.Emit(logger.INFO, "Waiting for container %s to come UP\n", container)
	if _, err := docker.WaitForContainer(container, UP); err != nil {
		dockerLogger.Emit(logger.ERROR, "Container %s failed to come online: %v\n", container, err)
		return err
	}

	dockerLogger.Emit(logger.SUCCESS, "Container %s is UP!\n", container)
	return nil
}

func (docker *manager) Shutdown(timeout time.Duration) {
	docker.mutex.Lock()
	containers := make([]Container, 0, len(docker.containers))
	for _, c := range docker.containers {
		containers = append(containers, c)
	}
	docker.mutex.Unlock()

	for _, c := range containers {
		dockerLogger.Emit(logger.STOP, "Closing container %s...\n", c)
		c.Close(docker.ctx, docker.cli, timeout)
		docker.WaitForContainer(c, DEAD)
	}

	docker.wg.Wait()
	docker.ctxCancel()
}

// WaitForContainer blocks until the container provided reaches one of
// the statuses given, returning the status that was reached. An error
// is returned if the container dies before reaching a desired status.
func (docker *manager) WaitForContainer(container Container, statuses ...ContainerStatus) (ContainerStatus, error) {
	ch := docker.subscribe()
	defer docker.unsubscribe(ch)

	// A DEAD container will never see another status change
	if container.Status() == DEAD {
		return DEAD, fmt.Errorf("cannot wait on DEAD container %s", container)
	}

	for _, s := range statuses {
		if container.Status() == s {
			return s, nil
		}
	}

	for update := range ch {
		if update.containerLabel != container.Label() {
			continue
		}

		for _, stat := range statuses {
			if stat == update.status {
				return stat, nil
			}
		}
	}

	return DEAD, fmt.Errorf("wait on container %s aborted as container has closed", container)
}

func (docker *manager) subscribe() chan containerStatusUpdate {
	docker.mutex.Lock()
	defer docker.mutex.Unlock()

	ch := make(chan containerStatusUpdate, 10)
	docker.subscribers = append(docker.subscribers, ch)
	return ch
}

func (docker *manager) unsubscribe(ch chan containerStatusUpdate) {
	docker.mutex.Lock()
	defer docker.mutex.Unlock()

	for i, sub := range docker.subscribers {
		if sub == ch {
			docker.subscribers = append(docker.subscribers[:i], docker.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (docker *manager) publish(update containerStatusUpdate) {
	docker.mutex.Lock()
	defer docker.mutex.Unlock()

	for _, sub := range docker.subscribers {
		select {
		case sub <- update:
		default:
		}
	}
}

func (docker *manager) monitorContainer(container Container) {
	defer func() {
		dockerLogger.Emit(logger.INFO, "Container %s - status management detached\n", container)
		docker.wg.Done()
	}()

	for {
		select {
		case stat, ok := <-container.StatusChannel():
			if !ok {
				return
			}
			dockerLogger.Emit(logger.INFO, "Container %s - status change: %s\n", container, stat)

			docker.publish(containerStatusUpdate{containerLabel: container.Label(), status: stat})
		case msg, ok := <-container.MessageChannel():
			if !ok {
				return
			}
			dockerLogger.Emit(logger.VERBOSE, "%s: %s\n", container, msg)
		}
	}
}
