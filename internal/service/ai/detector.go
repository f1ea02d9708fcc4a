package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"crowdwatch/internal/analysis"
	"crowdwatch/internal/config"
	"crowdwatch/internal/logger"

	"gocv.io/x/gocv"
)

const (
	// PersonClassID is the COCO class of a person in the SSD MobileNet label map.
	PersonClassID = 1
	// NMSThreshold is the IoU above which overlapping person boxes are merged.
	NMSThreshold = 0.45
)

// PersonDetector finds people in JPEG frames with an SSD MobileNet network.
// It is not safe for concurrent use; each processing worker owns one.
type PersonDetector struct {
	net        gocv.Net
	modelPath  string
	configPath string
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewPersonDetector loads the network from the model and config paths.
func NewPersonDetector(config *config.Config, logger *logger.Logger) (*PersonDetector, error) {
	detector := &PersonDetector{
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		logger:     logger,
	}

	if err := detector.initializeNet(); err != nil {
		return nil, fmt.Errorf("could not initialize detection network: %w", err)
	}

	return detector, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (d *PersonDetector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}

	if _, err := os.Stat(d.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", d.configPath)
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = net
	d.logger.Info("Detection network initialized successfully")
	return nil
}

// DetectPeople decodes the JPEG frame, runs the network and returns the frame
// size with every person detected at or above minConfidence. Boxes are clipped
// to the frame and overlapping boxes are suppressed.
func (d *PersonDetector) DetectPeople(imageBytes []byte, minConfidence float64) (analysis.Frame, []analysis.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.net.Empty() {
		return analysis.Frame{}, nil, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return analysis.Frame{}, nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return analysis.Frame{}, nil, fmt.Errorf("decoded image is empty")
	}

	frame := analysis.Frame{Width: mat.Cols(), Height: mat.Rows()}

	// Create blob with parameters that fit ssd coco net input
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	// Process detections with output: [ batch_id, class_id, confidence, x1, y1, x2, y2 ]
	outputReshaped := output.Reshape(1, output.Total()/7)
	defer outputReshaped.Close()

	var (
		rects  []image.Rectangle
		scores []float32
		boxes  []analysis.Box
	)
	w, h := float64(frame.Width), float64(frame.Height)
	for i := 0; i < outputReshaped.Rows(); i++ {
		if int(outputReshaped.GetFloatAt(i, 1)) != PersonClassID {
			continue
		}
		confidence := outputReshaped.GetFloatAt(i, 2)
		if float64(confidence) < minConfidence {
			continue
		}

		box := analysis.ClipBox(analysis.Box{
			X1: float64(outputReshaped.GetFloatAt(i, 3)) * w,
			Y1: float64(outputReshaped.GetFloatAt(i, 4)) * h,
			X2: float64(outputReshaped.GetFloatAt(i, 5)) * w,
			Y2: float64(outputReshaped.GetFloatAt(i, 6)) * h,
		}, frame)
		if box.Validate() != nil {
			continue
		}

		boxes = append(boxes, box)
		rects = append(rects, image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)))
		scores = append(scores, confidence)
	}

	if len(boxes) == 0 {
		return frame, nil, nil
	}

	indices := gocv.NMSBoxes(rects, scores, float32(minConfidence), NMSThreshold)
	detections := make([]analysis.Detection, 0, len(indices))
	for _, idx := range indices {
		detections = append(detections, analysis.Detection{
			Box:        boxes[idx],
			Confidence: clampConfidence(float64(scores[idx])),
		})
	}

	return frame, detections, nil
}

// Close releases the network.
func (d *PersonDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

func clampConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}
