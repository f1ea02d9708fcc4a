package websocket

import (
	"context"
	"sync"
	"time"

	"crowdwatch/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	// broadcastBuffer is how many messages may wait for the hub loop before new ones are dropped.
	broadcastBuffer = 256
	writeWait       = 5 * time.Second
)

// AllCameras subscribes a viewer to every camera.
const AllCameras = ""

type message struct {
	data   []byte
	camera string
}

type subscription struct {
	conn   *websocket.Conn
	camera string
}

// HubService fans messages out to connected viewers. Each viewer follows one
// camera or, with AllCameras, all of them.
type HubService struct {
	clients    map[*websocket.Conn]string
	broadcast  chan message
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan message, broadcastBuffer),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every client connection.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			h.logger.Info("Hub stopped")
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.conn] = sub.camera
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected (camera %q). Total: %d", sub.camera, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client, camera := range h.clients {
				if camera != AllCameras && camera != msg.camera {
					continue
				}
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register subscribes client to camera. It is a no-op once the hub has stopped.
func (h *HubService) Register(client *websocket.Conn, camera string) {
	select {
	case h.register <- subscription{conn: client, camera: camera}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes client.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for the viewers of camera. When the queue is full
// the message is dropped so that frame producers never block.
func (h *HubService) Broadcast(data []byte, camera string) {
	select {
	case h.broadcast <- message{data: data, camera: camera}:
	default:
		h.logger.Warning("Broadcast queue full - dropping message for camera %s", camera)
	}
}

// GetClientCount returns the number of connected viewers.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
