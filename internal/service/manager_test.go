package service

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"crowdwatch/internal/analysis"
	"crowdwatch/internal/config"
	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========================================
// Fakes
// ========================================

type fakeDetector struct {
	mu         sync.Mutex
	frame      analysis.Frame
	detections []analysis.Detection
	err        error
	calls      int
	minConf    float64
	closed     bool
}

func (d *fakeDetector) DetectPeople(image []byte, minConfidence float64) (analysis.Frame, []analysis.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.minConf = minConfidence
	return d.frame, d.detections, d.err
}

func (d *fakeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDetector) set(frame analysis.Frame, detections []analysis.Detection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame, d.detections = frame, detections
}

func (d *fakeDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeHub struct {
	mu       sync.Mutex
	messages []map[string]interface{}
}

func (h *fakeHub) Broadcast(message []byte, camera string) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(message, &decoded); err != nil {
		panic(err)
	}
	h.mu.Lock()
	h.messages = append(h.messages, decoded)
	h.mu.Unlock()
}

func (h *fakeHub) ofType(typ string) []map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]interface{}
	for _, m := range h.messages {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeSink struct {
	mu      sync.Mutex
	records []model.Record
}

func (s *fakeSink) AddRecord(rec model.Record) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
}

func (s *fakeSink) all() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Record(nil), s.records...)
}

type testManager struct {
	*Manager
	detector *fakeDetector
	hub      *fakeHub
	sink     *fakeSink
}

func newTestManager(t *testing.T, interval int) *testManager {
	t.Helper()
	l, err := logger.NewWithWriters(t.TempDir(), io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	detector := &fakeDetector{frame: analysis.Frame{Width: 1000, Height: 1000}}
	hub := &fakeHub{}
	sink := &fakeSink{}
	cfg := &config.Config{ProcessingInterval: interval}

	m := NewManager([]Detector{detector}, sink, hub, NewSettings(analysis.DefaultConfig()), cfg, l)
	t.Cleanup(m.Stop)
	return &testManager{Manager: m, detector: detector, hub: hub, sink: sink}
}

func person(cx, cy float64) analysis.Detection {
	return analysis.Detection{Box: analysis.Box{X1: cx - 10, Y1: cy - 20, X2: cx + 10, Y2: cy + 20}, Confidence: 0.9}
}

// ========================================
// Manager Tests
// ========================================

func TestManagerProcessesEveryNthFrame(t *testing.T) {
	tm := newTestManager(t, 3)

	for i := 0; i < 7; i++ {
		tm.HandleCameraImage([]byte{0xFF, 0xD8, byte(i), 0xFF, 0xD9}, "gate")
	}

	assert.Eventually(t, func() bool { return len(tm.sink.all()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, tm.detector.callCount())
	assert.Len(t, tm.hub.ofType(dto.MessageTypeFrame), 7)
}

func TestManagerPublishesAnalysis(t *testing.T) {
	tm := newTestManager(t, 1)

	var detections []analysis.Detection
	for i := 0; i < 5; i++ {
		detections = append(detections, person(50+float64(i)*40, 100))
	}
	for _, c := range [][2]float64{{500, 100}, {900, 100}, {100, 500}, {900, 500}, {500, 900}} {
		detections = append(detections, person(c[0], c[1]))
	}
	tm.detector.set(analysis.Frame{Width: 1000, Height: 1000}, detections)

	tm.HandleCameraImage([]byte("jpeg"), "gate")
	require.Eventually(t, func() bool { return len(tm.sink.all()) == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := tm.sink.all()[0]
	assert.Equal(t, "gate", rec.Camera)
	assert.Equal(t, 10, rec.PersonCount)
	assert.InDelta(t, 0.4, rec.CDI, 1e-9)
	assert.Equal(t, "CAUTION", rec.RiskLevel)
	require.NotNil(t, rec.SafestCell)
	assert.Equal(t, 4, *rec.SafestCell)
	assert.Equal(t, "center zone is safest", rec.Direction)
	assert.Equal(t, []int{5, 1, 1, 1, 0, 1, 0, 1, 0}, rec.Occupancy)
	_, err := uuid.Parse(rec.SessionID)
	assert.NoError(t, err)

	msgs := tm.hub.ofType(dto.MessageTypeAnalysis)
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, rec.SessionID, msg["session_id"])
	assert.EqualValues(t, 10, msg["person_count"])
	risk := msg["risk"].(map[string]interface{})
	assert.Equal(t, "CAUTION", risk["level"])
	assert.Equal(t, "#FFC107", risk["color"])
	direction := msg["direction"].(map[string]interface{})
	assert.EqualValues(t, 4, direction["cell_index"])
	assert.Equal(t, "○", direction["arrow"])

	assert.Equal(t, analysis.DefaultConfidenceThreshold, tm.detector.minConf)

	cams := tm.Cameras()
	require.Len(t, cams, 1)
	assert.Equal(t, "CAUTION", cams[0].RiskLevel)
	assert.Equal(t, 10, cams[0].PersonCount)
}

func TestManagerSkipsFailedFrames(t *testing.T) {
	tm := newTestManager(t, 1)

	tm.detector.mu.Lock()
	tm.detector.err = errors.New("decoded image is empty")
	tm.detector.mu.Unlock()
	tm.HandleCameraImage([]byte("broken"), "gate")
	require.Eventually(t, func() bool { return tm.detector.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	tm.detector.mu.Lock()
	tm.detector.err = nil
	tm.detector.mu.Unlock()
	tm.HandleCameraImage([]byte("ok"), "gate")
	require.Eventually(t, func() bool { return len(tm.sink.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, tm.hub.ofType(dto.MessageTypeAnalysis), 1)
}

func TestManagerAlertsOnDanger(t *testing.T) {
	tm := newTestManager(t, 1)

	// One person on a tiny frame saturates the density term.
	tm.detector.set(analysis.Frame{Width: 100, Height: 100}, []analysis.Detection{person(50, 50)})
	tm.HandleCameraImage([]byte("a"), "gate")
	tm.HandleCameraImage([]byte("b"), "gate")
	require.Eventually(t, func() bool { return len(tm.sink.all()) == 2 }, 2*time.Second, 10*time.Millisecond)

	alerts := tm.hub.ofType(dto.MessageTypeAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, true, alerts[0]["active"])
	assert.Equal(t, "DANGER", alerts[0]["level"])

	tm.detector.set(analysis.Frame{Width: 100, Height: 100}, nil)
	tm.HandleCameraImage([]byte("c"), "gate")
	require.Eventually(t, func() bool { return len(tm.sink.all()) == 3 }, 2*time.Second, 10*time.Millisecond)

	alerts = tm.hub.ofType(dto.MessageTypeAlert)
	require.Len(t, alerts, 2)
	assert.Equal(t, false, alerts[1]["active"])
	assert.Equal(t, "SAFE", alerts[1]["level"])
}

func TestManagerSessions(t *testing.T) {
	tm := newTestManager(t, 100)

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return clock }

	tm.HandleCameraImage([]byte("a"), "gate")
	first := tm.Cameras()[0].SessionID

	clock = clock.Add(10 * time.Second)
	tm.HandleCameraImage([]byte("b"), "gate")
	assert.Equal(t, first, tm.Cameras()[0].SessionID)

	clock = clock.Add(sessionGap + time.Second)
	tm.HandleCameraImage([]byte("c"), "gate")
	second := tm.Cameras()[0].SessionID
	assert.NotEqual(t, first, second)

	third := tm.StartSession("gate")
	assert.NotEqual(t, second, third)
	assert.Equal(t, third, tm.Cameras()[0].SessionID)
}

func TestManagerStop(t *testing.T) {
	tm := newTestManager(t, 1)
	tm.Stop()
	tm.Stop()

	assert.True(t, tm.detector.closed)
	assert.NotPanics(t, func() { tm.HandleCameraImage([]byte("late"), "gate") })
}

// ========================================
// Settings Tests
// ========================================

func TestSettingsUpdate(t *testing.T) {
	s := NewSettings(analysis.DefaultConfig())

	next := analysis.DefaultConfig()
	next.Rows, next.Cols = 4, 4
	require.NoError(t, s.Update(next))
	assert.Equal(t, 4, s.Get().Rows)

	bad := analysis.DefaultConfig()
	bad.Rows, bad.Cols = 5, 5
	assert.Error(t, s.Update(bad))
	assert.Equal(t, 4, s.Get().Rows)
}

func TestSettingsSnapshotsAreIndependent(t *testing.T) {
	s := NewSettings(analysis.DefaultConfig())
	snap := s.Get()
	snap.Risk[0].UpperBound = 0.99
	assert.Equal(t, 0.3, s.Get().Risk[0].UpperBound)
}
