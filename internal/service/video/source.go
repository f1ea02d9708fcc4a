// Package video replays a video file as if it were a live camera.
package video

import (
	"context"
	"fmt"
	"time"

	"crowdwatch/internal/logger"

	"gocv.io/x/gocv"
)

// defaultFPS is used when the container does not report a frame rate.
const defaultFPS = 25.0

// FrameSink receives encoded frames.
type FrameSink interface {
	HandleCameraImage(image []byte, camera string)
}

// FileSource decodes a video file frame by frame at its native rate and
// forwards each frame as JPEG. A looping source starts over when the file ends.
type FileSource struct {
	path   string
	camera string
	loop   bool
	logger *logger.Logger
}

// NewFileSource creates a source for path published as camera.
func NewFileSource(path, camera string, loop bool, logger *logger.Logger) *FileSource {
	return &FileSource{path: path, camera: camera, loop: loop, logger: logger}
}

// Run plays the file until ctx is done, or until the end of the file when
// looping is off.
func (s *FileSource) Run(ctx context.Context, sink FrameSink) error {
	capture, err := gocv.VideoCaptureFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to open video %s: %w", s.path, err)
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return fmt.Errorf("video %s could not be opened", s.path)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = defaultFPS
	}
	s.logger.Info("🎞️  Demo source %s playing %s at %.1f fps", s.camera, s.path, fps)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if ok := capture.Read(&img); !ok || img.Empty() {
			if !s.loop {
				s.logger.Info("Demo source %s reached end of %s", s.camera, s.path)
				return nil
			}
			capture.Set(gocv.VideoCapturePosFrames, 0)
			continue
		}

		frame, err := encodeJPEG(img)
		if err != nil {
			s.logger.Error("Demo source %s: %v", s.camera, err)
			continue
		}
		sink.HandleCameraImage(frame, s.camera)
	}
}

// encodeJPEG encodes a frame and copies it out of native memory.
func encodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
