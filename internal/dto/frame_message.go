package dto

// FrameMessage carries one raw camera frame, base64 encoded, to viewers.
type FrameMessage struct {
	Type   string `json:"type"`
	Camera string `json:"camera"`
	Image  string `json:"image"`
}
