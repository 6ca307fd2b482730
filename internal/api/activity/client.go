package activity

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// socketClient wraps a single websocket connection. Writes are
// serialised with a mutex as gorilla permits only one concurrent
// writer per connection.
type socketClient struct {
	id        uuid.UUID
	socket    *websocket.Conn
	writeLock sync.Mutex
	closed    bool
}

func newSocketClient(id uuid.UUID, socket *websocket.Conn) *socketClient {
	return &socketClient{id: id, socket: socket}
}

func (client *socketClient) Send(message ActivityMessage) error {
	client.writeLock.Lock()
	defer client.writeLock.Unlock()

	if client.closed {
		return nil
	}

	return client.socket.WriteJSON(message)
}

// ReadUntilClosed drains (and discards) inbound frames until the peer
// disconnects. Reading is required for close/ping control frames to be
// processed.
func (client *socketClient) ReadUntilClosed() {
	for {
		if _, _, err := client.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (client *socketClient) Close() {
	client.writeLock.Lock()
	defer client.writeLock.Unlock()

	if client.closed {
		return
	}

	client.closed = true
	_ = client.socket.Close()
}
