package dto

import "time"

// MessageTypeAlert marks a risk alert pushed to viewers.
const MessageTypeAlert = "alert"

// AlertMessage is sent when a camera enters or leaves the top risk level.
type AlertMessage struct {
	Type      string    `json:"type"`
	Camera    string    `json:"camera"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Active    bool      `json:"active"`
	Message   string    `json:"message"`
}

// CameraStatus is the latest known state of one camera.
type CameraStatus struct {
	Camera      string    `json:"camera"`
	SessionID   string    `json:"session_id"`
	LastFrame   time.Time `json:"last_frame"`
	LastResult  time.Time `json:"last_result"`
	PersonCount int       `json:"person_count"`
	CDI         float64   `json:"cdi"`
	RiskLevel   string    `json:"risk_level"`
	Direction   string    `json:"direction"`
}
