// Package activity exposes the internal event bus over a websocket;
// connected clients receive a JSON message for every import lifecycle
// and gallery mutation event, letting the frontend show live progress
// without polling.
package activity

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sratabix/gifselector/internal/event"
	"github.com/sratabix/gifselector/pkg/logger"
)

var log = logger.Get("Activity")

// ActivityMessage is the JSON frame pushed to every connected client
// when an event is observed on the bus.
type ActivityMessage struct {
	Title   string        `json:"title"`
	Payload event.Payload `json:"payload"`
}

// Hub manages the websocket clients and fans bus events out to them.
// All client membership changes flow through the Run loop's channels,
// so no locking is required.
type Hub struct {
	upgrader     *websocket.Upgrader
	clients      []*socketClient
	registerCh   chan *socketClient
	deregisterCh chan *socketClient
	eventCh      event.HandlerChannel
	running      bool
}

func New(eventBus event.EventHandler) *Hub {
	// Buffered so a slow client never blocks the import pipeline's
	// dispatch call.
	eventCh := make(event.HandlerChannel, 100)
	eventBus.RegisterHandlerChannel(eventCh,
		event.IMPORT_STARTED, event.IMPORT_UPDATE, event.IMPORT_COMPLETE,
		event.GIF_CREATED, event.GIF_DELETED,
	)

	return &Hub{
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:      make([]*socketClient, 0),
		registerCh:   make(chan *socketClient),
		deregisterCh: make(chan *socketClient),
		eventCh:      eventCh,
	}
}

// Run pumps bus events out to the connected clients until the context
// is cancelled, at which point all clients are closed.
func (hub *Hub) Run(ctx context.Context) error {
	hub.running = true
	defer hub.close()

	for {
		select {
		case ev := <-hub.eventCh:
			hub.broadcast(ActivityMessage{Title: string(ev.Event), Payload: ev.Payload})
		case client := <-hub.registerCh:
			hub.clients = append(hub.clients, client)
			log.Emit(logger.NEW, "Registered activity client {%v}\n", client.id)
		case client := <-hub.deregisterCh:
			if idx := hub.findClient(client.id); idx != -1 {
				hub.clients = append(hub.clients[:idx], hub.clients[idx+1:]...)
				log.Emit(logger.REMOVE, "Deregistered activity client {%v}\n", client.id)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Upgrade is the echo handler upgrading the request to a websocket and
// registering the resulting client with the hub. It blocks for the
// lifetime of the connection.
func (hub *Hub) Upgrade(ec echo.Context) error {
	if !hub.running {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "activity hub is not running")
	}

	socket, err := hub.upgrader.Upgrade(ec.Response(), ec.Request(), nil)
	if err != nil {
		log.Emit(logger.ERROR, "Failed to upgrade request to websocket: %v\n", err)
		return err
	}

	client := newSocketClient(uuid.New(), socket)
	hub.registerCh <- client
	defer func() {
		hub.deregisterCh <- client
		client.Close()
	}()

	// Block until the peer disconnects; inbound frames are discarded
	// as the activity stream is one-way.
	client.ReadUntilClosed()
	return nil
}

func (hub *Hub) broadcast(message ActivityMessage) {
	for _, client := range hub.clients {
		if err := client.Send(message); err != nil {
			log.Emit(logger.WARNING, "Failed to send activity message to client {%v}: %v\n", client.id, err)
		}
	}
}

func (hub *Hub) findClient(id uuid.UUID) int {
	for idx, client := range hub.clients {
		if client.id == id {
			return idx
		}
	}

	return -1
}

func (hub *Hub) close() {
	for _, client := range hub.clients {
		client.Close()
	}

	hub.clients = nil
	hub.running = false
	log.Emit(logger.STOP, "Activity hub is now closed\n")
}
