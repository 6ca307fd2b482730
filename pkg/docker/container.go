package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	dCont "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/sratabix/gifselector/pkg/logger"
)

type ContainerStatus int

const (
	// Container struct instance has just been created
	INIT ContainerStatus = iota

	// Container is UP and working normally
	UP

	// Container has CRASHED
	CRASHED

	// Container is being closed intentionally, next status should always be DOWN
	CLOSING

	// Container is DOWN (intentionally closed)
	DOWN

	// Container has been removed
	DEAD
)

func (e ContainerStatus) String() string {
	return []string{"INIT", "UP", "CRASHED", "CLOSING", "DOWN", "DEAD"}[e]
}

type containerPullEvent struct {
	Status   string `json:"status"`
	Error    string `json:"error"`
	Progress string `json:"progress"`
}

type Container interface {
	// Start pulls the required image and creates and starts a container
	// via the Docker SDK. Monitoring of the container occurs asynchronously,
	// so no error is returned if the container crashes after starting.
	Start(context.Context, client.APIClient) error

	// Close kills the running container (if running) and removes it
	// from the docker daemon.
	Close(context.Context, client.APIClient, time.Duration) error

	// MessageChannel streams stdout/stderr lines from the running container.
	// A DEAD container will have a closed message channel.
	MessageChannel() chan []byte

	// StatusChannel streams status changes. The channel is closed shortly
	// after a DEAD status has been broadcast.
	StatusChannel() chan ContainerStatus

	Label() string
	ID() string
	Status() ContainerStatus
}

type managedContainer struct {
	statusChannel     chan ContainerStatus
	messageChannel    chan []byte
	label             string
	imageID           string
	containerID       string
	status            ContainerStatus
	containerConf     *dCont.Config
	containerHostConf *dCont.HostConfig
}

// NewContainer creates a new managed container instance which can be
// started via a Manager (see SpawnContainer).
func NewContainer(label string, image string, conf *dCont.Config, hostConf *dCont.HostConfig) Container {
	return &managedContainer{
		statusChannel:     make(chan ContainerStatus, 5),
		messageChannel:    make(chan []byte, 5),
		imageID:           image,
		containerConf:     conf,
		containerHostConf: hostConf,
		status:            INIT,
		label:             label,
	}
}

func (c *managedContainer) Start(ctx context.Context, cli client.APIClient) error {
	if c.status != INIT {
		return fmt.Errorf("cannot start container %s based on image %v as status is invalid", c, c.imageID)
	}

	out, err := cli.ImagePull(ctx, c.imageID, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %v for container %s: %w", c.imageID, c, err)
	}
	defer out.Close()

	eventStream := json.NewDecoder(out)
	var event *containerPullEvent
	for {
		if err := eventStream.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}

			return fmt.Errorf("failed to decode image pull event for container %s: %w", c, err)
		}

		if event.Error != "" {
			dockerLogger.Emit(logger.ERROR, "%s: %s\n", c, event.Error)
		} else if event.Progress != "" {
			dockerLogger.Emit(logger.DEBUG, "%s: %s\n", c, event.Progress)
		}
	}

	resp, err := cli.ContainerCreate(ctx, c.containerConf, c.containerHostConf, nil, nil, c.label)
	if err != nil {
		return fmt.Errorf("failed to create container for %s: %w", c, err)
	}
	c.containerID = resp.ID

	if err := cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("failed to start container for %s: %w", c, err)
	}
	c.setStatus(UP)

	go c.monitorContainer(ctx, cli)
	return nil
}

func (c *managedContainer) Close(ctx context.Context, cli client.APIClient, timeout time.Duration) error {
	if c.status == DEAD {
		return nil
	}

	if c.canStop() {
		c.setStatus(CLOSING)
		timeoutSeconds := int(timeout.Seconds())
		if err := cli.ContainerStop(ctx, c.containerID, dCont.StopOptions{Timeout: &timeoutSeconds}); err != nil {
			return fmt.Errorf("failed to stop container %s: %w", c, err)
		}

		c.setStatus(DOWN)
	}

	if c.containerID != "" {
		if err := cli.ContainerRemove(ctx, c.containerID, types.ContainerRemoveOptions{}); err != nil {
			return fmt.Errorf("failed to remove container %s: %w", c, err)
		}
	}
	c.setStatus(DEAD)

	close(c.statusChannel)
	close(c.messageChannel)

	return nil
}

func (c *managedContainer) MessageChannel() chan []byte {
	return c.messageChannel
}

func (c *managedContainer) StatusChannel() chan ContainerStatus {
	return c.statusChannel
}

func (c *managedContainer) ID() string {
	return c.containerID
}

func (c *managedContainer) Label() string {
	return c.label
}

func (c *managedContainer) Status() ContainerStatus {
	return c.status
}

func (c *managedContainer) String() string {
	if c.containerID == "" {
		return fmt.Sprintf("%v[...]", c.label)
	}

	return fmt.Sprintf("%v[%v]", c.label, c.containerID[:10])
}

func (c *managedContainer) canStop() bool {
	return c.status == CLOSING || c.status == UP || c.status == CRASHED
}

func (c *managedContainer) setStatus(stat ContainerStatus) {
	if c.status == DEAD {
		return
	}

	c.status = stat
	c.statusChannel <- c.status
}

func (c *managedContainer) monitorContainer(ctx context.Context, cli client.APIClient) {
	reader, err := cli.ContainerLogs(ctx, c.containerID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		c.setStatus(CRASHED)
		return
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if c.status != UP {
			break
		}

		c.messageChannel <- scanner.Bytes()
	}

	if c.status != CLOSING {
		c.setStatus(CRASHED)
	}
}
