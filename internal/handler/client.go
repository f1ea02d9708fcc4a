package handler

import (
	"net/http"
	"time"

	"crowdwatch/internal/logger"

	"github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const viewerReadWait = 60 * time.Second

// ViewerHub tracks viewer connections.
type ViewerHub interface {
	Register(client *websocket.Conn, camera string)
	Unregister(client *websocket.Conn)
}

// ViewWebsocketHandler handles viewer connections over WebSocket and registers them
// in the hub. The optional camera query parameter limits the stream to one camera.
func ViewWebsocketHandler(hub ViewerHub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		camera := r.URL.Query().Get("camera")

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(viewerReadWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(viewerReadWait))
			return nil
		})

		hub.Register(connection, camera)
		defer hub.Unregister(connection)

		if camera == "" {
			logger.Info("Viewer connected")
		} else {
			logger.Info("Viewer connected to camera %s", camera)
		}

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
