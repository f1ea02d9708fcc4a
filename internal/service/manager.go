package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"crowdwatch/internal/analysis"
	"crowdwatch/internal/config"
	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"

	"github.com/google/uuid"
)

const (
	queueSize = 100
	// sessionGap is the silence after which a camera's next frame starts a new session.
	sessionGap = 30 * time.Second
)

// Detector finds people in an encoded frame.
type Detector interface {
	DetectPeople(image []byte, minConfidence float64) (analysis.Frame, []analysis.Detection, error)
	Close() error
}

// Broadcaster pushes messages to the viewers of a camera.
type Broadcaster interface {
	Broadcast(message []byte, camera string)
}

// RecordSink accepts analysis records for persistence.
type RecordSink interface {
	AddRecord(rec model.Record)
}

type ImageProcessingTask struct {
	Image    []byte
	Camera   string
	Received time.Time
}

// cameraState tracks one camera between frames.
type cameraState struct {
	frames    int
	sessionID string
	lastFrame time.Time
	danger    bool
	status    dto.CameraStatus
}

// Manager forwards camera frames to viewers and samples them into a worker
// pool that runs detection and crowd analysis.
type Manager struct {
	detectors []Detector
	buffer    RecordSink
	hub       Broadcaster
	settings  *Settings
	logger    *logger.Logger

	processingQueue chan ImageProcessingTask
	cameras         map[string]*cameraState
	processEveryNth int
	numWorkers      int
	now             func() time.Time

	camerasMu sync.Mutex
	queueMu   sync.RWMutex
	stopped   bool
	wg        sync.WaitGroup
}

// NewManager starts one processing worker per detector.
func NewManager(detectors []Detector, buffer RecordSink, hub Broadcaster, settings *Settings, config *config.Config, logger *logger.Logger) *Manager {
	manager := &Manager{
		detectors:       detectors,
		buffer:          buffer,
		hub:             hub,
		settings:        settings,
		logger:          logger,
		numWorkers:      len(detectors),
		processingQueue: make(chan ImageProcessingTask, queueSize),
		cameras:         make(map[string]*cameraState),
		processEveryNth: max(config.ProcessingInterval, 1),
		now:             time.Now,
	}

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	manager.logger.Info("🎬 Manager started - %d worker(s), processing every %d frame(s)", manager.numWorkers, manager.processEveryNth)
	return manager
}

// HandleCameraImage sends the frame to viewers and queues every Nth frame of
// the camera for analysis. Frames are dropped when the queue is full.
func (m *Manager) HandleCameraImage(image []byte, camera string) {
	m.SendToViewers(image, camera)

	now := m.now()
	m.camerasMu.Lock()
	state := m.cameraState(camera, now)
	state.frames++
	due := state.frames >= m.processEveryNth
	if due {
		state.frames = 0
	}
	m.camerasMu.Unlock()

	if !due {
		return
	}

	m.queueMu.RLock()
	defer m.queueMu.RUnlock()
	if m.stopped {
		return
	}

	select {
	case m.processingQueue <- ImageProcessingTask{Image: image, Camera: camera, Received: now}:
	default:
		m.logger.Warning("⚠️  Processing queue full for camera %s - skipping analysis", camera)
	}
}

// cameraState returns the state of camera, starting a new session when the
// camera is new or has been silent longer than sessionGap. Callers hold camerasMu.
func (m *Manager) cameraState(camera string, now time.Time) *cameraState {
	state, ok := m.cameras[camera]
	if !ok {
		state = &cameraState{}
		m.cameras[camera] = state
	}
	if !ok || now.Sub(state.lastFrame) > sessionGap {
		m.startSession(camera, state)
	}
	state.lastFrame = now
	state.status.LastFrame = now
	return state
}

func (m *Manager) startSession(camera string, state *cameraState) {
	state.sessionID = uuid.NewString()
	state.frames = 0
	state.danger = false
	state.status = dto.CameraStatus{Camera: camera, SessionID: state.sessionID}
	m.logger.Info("📹 Camera %s: new session %s", camera, state.sessionID)
}

// StartSession begins a new session for camera, for example when it reconnects.
func (m *Manager) StartSession(camera string) string {
	m.camerasMu.Lock()
	defer m.camerasMu.Unlock()

	state, ok := m.cameras[camera]
	if !ok {
		state = &cameraState{}
		m.cameras[camera] = state
	}
	m.startSession(camera, state)
	state.lastFrame = m.now()
	return state.sessionID
}

// SendToViewers broadcasts a raw frame.
func (m *Manager) SendToViewers(image []byte, camera string) {
	msg, err := json.Marshal(dto.FrameMessage{
		Type:   dto.MessageTypeFrame,
		Camera: camera,
		Image:  base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		m.logger.Error("Failed to encode frame message: %v", err)
		return
	}
	m.hub.Broadcast(msg, camera)
}

// Settings returns the runtime analysis settings.
func (m *Manager) Settings() *Settings {
	return m.settings
}

// Cameras returns the latest status of every camera, sorted by name.
func (m *Manager) Cameras() []dto.CameraStatus {
	m.camerasMu.Lock()
	defer m.camerasMu.Unlock()

	statuses := make([]dto.CameraStatus, 0, len(m.cameras))
	for _, state := range m.cameras {
		statuses = append(statuses, state.status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Camera < statuses[j].Camera })
	return statuses
}

// processingWorker analyzes queued frames with its own detector.
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("🔧 Processing worker %d started", workerID)

	for task := range m.processingQueue {
		if err := m.processImage(task, m.detectors[workerID]); err != nil {
			m.logger.Error("Camera %s: %v", task.Camera, err)
		}
	}

	m.logger.Info("🔧 Processing worker %d stopped", workerID)
}

// processImage runs detection and analysis on one frame, then publishes and
// stores the result. A failing frame is skipped.
func (m *Manager) processImage(task ImageProcessingTask, detector Detector) error {
	cfg := m.settings.Get()

	frame, detections, err := detector.DetectPeople(task.Image, cfg.ConfidenceThreshold)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	result, err := analysis.Analyze(frame, detections, cfg)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	sessionID, alert := m.updateStatus(task, result)

	msg, err := json.Marshal(dto.NewAnalysisMessage(task.Camera, sessionID, task.Received, result))
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	m.hub.Broadcast(msg, task.Camera)

	if alert != nil {
		m.logger.Warning("🚨 Camera %s: %s", task.Camera, alert.Message)
		if data, err := json.Marshal(alert); err == nil {
			m.hub.Broadcast(data, task.Camera)
		}
	}

	m.buffer.AddRecord(newRecord(task, sessionID, result))
	return nil
}

// updateStatus stores the latest result of the camera and returns its session
// and, when the camera crossed into or out of the top risk level, an alert.
func (m *Manager) updateStatus(task ImageProcessingTask, result *analysis.Result) (string, *dto.AlertMessage) {
	m.camerasMu.Lock()
	defer m.camerasMu.Unlock()

	state := m.cameras[task.Camera]
	if state == nil {
		state = &cameraState{}
		m.cameras[task.Camera] = state
		m.startSession(task.Camera, state)
	}

	state.status.LastResult = task.Received
	state.status.PersonCount = result.TotalCount
	state.status.CDI = result.CDI
	state.status.RiskLevel = result.Risk.Level.String()
	state.status.Direction = result.Direction.Label

	danger := result.Risk.Level == analysis.Danger
	if danger == state.danger {
		return state.sessionID, nil
	}
	state.danger = danger

	alert := &dto.AlertMessage{
		Type:      dto.MessageTypeAlert,
		Camera:    task.Camera,
		SessionID: state.sessionID,
		Timestamp: task.Received,
		Level:     result.Risk.Level.String(),
		Active:    danger,
	}
	if danger {
		alert.Message = fmt.Sprintf("danger: %d people, CDI %.2f, move %s", result.TotalCount, result.CDI, result.Direction.Label)
	} else {
		alert.Message = fmt.Sprintf("danger cleared, now %s", result.Risk.Level)
	}
	return state.sessionID, alert
}

func newRecord(task ImageProcessingTask, sessionID string, result *analysis.Result) model.Record {
	return model.Record{
		SessionID:   sessionID,
		Camera:      task.Camera,
		Timestamp:   task.Received,
		PersonCount: result.TotalCount,
		CDI:         result.CDI,
		RiskLevel:   result.Risk.Level.String(),
		SafestCell:  result.Direction.Cell,
		Direction:   result.Direction.Label,
		GridRows:    result.Rows,
		GridCols:    result.Cols,
		Occupancy:   result.Occupancy,
	}
}

// Stop drains the queue, waits for the workers and closes the detectors.
func (m *Manager) Stop() {
	m.queueMu.Lock()
	if m.stopped {
		m.queueMu.Unlock()
		return
	}
	m.stopped = true
	close(m.processingQueue)
	m.queueMu.Unlock()

	m.wg.Wait()
	for i, d := range m.detectors {
		if err := d.Close(); err != nil {
			m.logger.Error("Failed to close detector %d: %v", i, err)
		}
	}
	m.logger.Info("🛑 All processing workers stopped")
}
