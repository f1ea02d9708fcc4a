package websocket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crowdwatch/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func newTestHub(t *testing.T) *HubService {
	t.Helper()
	l, err := logger.NewWithWriters(t.TempDir(), io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHubService(l)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// dialViewer connects a viewer subscribed to camera and waits until the hub
// has registered it. It returns the client end and the server end.
func dialViewer(t *testing.T, hub *HubService, camera string) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	serverConns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
		hub.Register(conn, r.URL.Query().Get("camera"))
	}))
	t.Cleanup(server.Close)

	before := hub.GetClientCount()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?camera=" + camera
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.GetClientCount() == before+1 }, 2*time.Second, 10*time.Millisecond)
	return conn, <-serverConns
}

func readText(t *testing.T, conn *websocket.Conn) (string, error) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, data, err := conn.ReadMessage()
	return string(data), err
}

func TestHubFiltersByCamera(t *testing.T) {
	hub := newTestHub(t)

	gate, _ := dialViewer(t, hub, "gate")
	all, _ := dialViewer(t, hub, AllCameras)

	hub.Broadcast([]byte(`{"camera":"hall"}`), "hall")
	hub.Broadcast([]byte(`{"camera":"gate"}`), "gate")

	msg, err := readText(t, gate)
	require.NoError(t, err)
	assert.Equal(t, `{"camera":"gate"}`, msg)

	msg, err = readText(t, all)
	require.NoError(t, err)
	assert.Equal(t, `{"camera":"hall"}`, msg)
	msg, err = readText(t, all)
	require.NoError(t, err)
	assert.Equal(t, `{"camera":"gate"}`, msg)
}

func TestHubUnregister(t *testing.T) {
	hub := newTestHub(t)
	viewer, serverSide := dialViewer(t, hub, "gate")
	require.Equal(t, 1, hub.GetClientCount())

	hub.Unregister(serverSide)
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, err := readText(t, viewer)
	assert.Error(t, err)
}

func TestHubStopClosesClients(t *testing.T) {
	l, err := logger.NewWithWriters(t.TempDir(), io.Discard, io.Discard)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHubService(l)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	viewer, serverSide := dialViewer(t, hub, "gate")
	cancel()
	<-stopped

	assert.Zero(t, hub.GetClientCount())
	_, err = readText(t, viewer)
	assert.Error(t, err)

	// Calls after shutdown must not block.
	hub.Unregister(serverSide)
	hub.Broadcast([]byte("late"), "gate")
}
