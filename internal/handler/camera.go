package handler

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"crowdwatch/internal/config"
	"crowdwatch/internal/logger"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

const (
	// maxFrameSize caps a reassembled UDP frame; larger partial frames are discarded.
	maxFrameSize   = 4 << 20
	cameraReadWait = 60 * time.Second
)

// CameraSink receives complete camera frames.
type CameraSink interface {
	HandleCameraImage(image []byte, camera string)
	StartSession(camera string) string
}

// frameAssembler rebuilds JPEG frames split over several UDP packets.
type frameAssembler struct {
	buffers map[string]*bytes.Buffer
}

func newFrameAssembler() *frameAssembler {
	return &frameAssembler{buffers: make(map[string]*bytes.Buffer)}
}

// Push appends a packet to the camera's buffer and returns the frame once its
// JPEG footer arrives. A packet starting with a JPEG header starts a new frame.
func (a *frameAssembler) Push(camera string, data []byte) []byte {
	imgBuffer, ok := a.buffers[camera]
	if !ok {
		imgBuffer = new(bytes.Buffer)
		a.buffers[camera] = imgBuffer
	}

	if bytes.HasPrefix(data, jpegHeader) {
		imgBuffer.Reset()
	}
	if imgBuffer.Len()+len(data) > maxFrameSize {
		imgBuffer.Reset()
		return nil
	}
	imgBuffer.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) || !bytes.HasPrefix(imgBuffer.Bytes(), jpegHeader) {
		return nil
	}

	fullFrame := make([]byte, imgBuffer.Len())
	copy(fullFrame, imgBuffer.Bytes())
	imgBuffer.Reset()
	return fullFrame
}

// UDPCameraHandler listens for UDP packets from cameras, reconstructs JPEG frames,
// and forwards complete frames for processing until ctx is cancelled.
func UDPCameraHandler(ctx context.Context, sink CameraSink, logger *logger.Logger, config *config.Config) error {
	port := strconv.Itoa(config.CamerasPort)

	addr, err := net.ResolveUDPAddr("udp", ":"+port)
	if err != nil {
		logger.Error("Failed to resolve UDP address: %v", err)
		return err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		logger.Error("Failed to listen on UDP port %s: %v", port, err)
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	logger.Info("UDP Camera handler started on port %s", port)
	return serveUDP(ctx, conn, sink, logger, config.CameraNames)
}

// serveUDP reads packets from conn until it is closed.
func serveUDP(ctx context.Context, conn net.PacketConn, sink CameraSink, logger *logger.Logger, cameraNames map[string]string) error {
	buffer := make([]byte, 65535)
	assembler := newFrameAssembler()

	for {
		n, remoteAddr, err := conn.ReadFrom(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info("UDP Camera handler stopped")
				return nil
			}
			logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		cameraName := cameraNameFor(remoteAddr, cameraNames)
		if frame := assembler.Push(cameraName, buffer[:n]); frame != nil {
			sink.HandleCameraImage(frame, cameraName)
		}
	}
}

// cameraNameFor maps the sender IP to a configured camera name.
func cameraNameFor(addr net.Addr, cameraNames map[string]string) string {
	ip := addr.String()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if name, ok := cameraNames[ip]; ok {
		return name
	}
	return "unknown_" + ip
}

// CameraWebsocketHandler accepts a camera pushing JPEG frames as WebSocket
// messages on /camera?id=<name>. Every connection starts a new session.
func CameraWebsocketHandler(sink CameraSink, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		camera := r.URL.Query().Get("id")
		if camera == "" {
			http.Error(w, "Camera id required", http.StatusBadRequest)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		connection.SetReadLimit(maxFrameSize)
		connection.SetReadDeadline(time.Now().Add(cameraReadWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(cameraReadWait))
			return nil
		})

		session := sink.StartSession(camera)
		logger.Info("Camera connected: %s (session %s)", camera, session)

		for {
			_, msg, err := connection.ReadMessage()
			if err != nil {
				logger.Info("Camera %s disconnected: %v", camera, err)
				return
			}
			connection.SetReadDeadline(time.Now().Add(cameraReadWait))
			sink.HandleCameraImage(msg, camera)
		}
	}
}
