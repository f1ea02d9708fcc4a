package analysis

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(cx, cy, half float64) Detection {
	return Detection{Box: Box{cx - half, cy - half, cx + half, cy + half}, Confidence: 0.8}
}

func TestCountAssignsByCenter(t *testing.T) {
	cells, err := Partition(300, 300, 3, 3)
	require.NoError(t, err)

	detections := []Detection{
		box(50, 50, 10),   // 0
		box(150, 50, 40),  // 1
		box(150, 150, 5),  // 4
		box(250, 250, 20), // 8
		box(260, 260, 20), // 8
		// Box straddling a boundary counts once, where its center is.
		{Box: Box{90, 90, 130, 130}, Confidence: 0.5}, // center (110,110) -> 4
	}

	occupancy, err := Count(detections, cells)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0, 0, 2, 0, 0, 0, 2}, occupancy)
}

func TestCountBoundaryGoesToHigherCell(t *testing.T) {
	cells, err := Partition(300, 300, 3, 3)
	require.NoError(t, err)

	// Center exactly on x=100 belongs to column 1.
	occupancy, err := Count([]Detection{box(100, 50, 10)}, cells)
	require.NoError(t, err)
	assert.Equal(t, 1, occupancy[1])
}

func TestCountClampsCentersOutsideFrame(t *testing.T) {
	cells, err := Partition(300, 300, 3, 3)
	require.NoError(t, err)

	detections := []Detection{
		{Box: Box{-80, -80, -20, -20}, Confidence: 0.9}, // clamped to (0,0) -> 0
		{Box: Box{280, 280, 400, 400}, Confidence: 0.9}, // center (340,340) -> 8
		{Box: Box{290, 100, 330, 140}, Confidence: 0.9}, // center x=310 -> 5
		{Box: Box{100, 300, 120, 360}, Confidence: 0.9}, // center y=330 -> 7
	}

	occupancy, err := Count(detections, cells)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 0, 0, 1, 0, 1, 1}, occupancy)
	assert.Equal(t, len(detections), sum(occupancy))
}

func TestCountRejectsMalformedInput(t *testing.T) {
	cells, err := Partition(100, 100, 2, 2)
	require.NoError(t, err)

	_, err = Count([]Detection{{Box: Box{50, 50, 40, 60}}}, cells)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Count([]Detection{box(10, 10, 2)}, nil)
	assert.True(t, errors.Is(err, ErrInvalidDimension))

	// Cells with a hole: the clamped center is not covered.
	holey := []Cell{{0, 0, 10, 10}, {20, 0, 30, 10}}
	_, err = Count([]Detection{box(15, 5, 1)}, holey)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestCountEmpty(t *testing.T) {
	cells, err := Partition(640, 480, 2, 2)
	require.NoError(t, err)

	occupancy, err := Count(nil, cells)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, occupancy)
}

func TestCountSumsToDetections(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	shapes := []struct{ width, height, rows, cols int }{
		{640, 480, 2, 2}, {1000, 1000, 3, 3}, {1921, 1079, 4, 4},
	}

	for _, s := range shapes {
		cells, err := Partition(s.width, s.height, s.rows, s.cols)
		require.NoError(t, err)

		detections := make([]Detection, 200)
		for i := range detections {
			x := rng.Float64() * float64(s.width)
			y := rng.Float64() * float64(s.height)
			detections[i] = box(x, y, 1+rng.Float64()*30)
		}

		occupancy, err := Count(detections, cells)
		require.NoError(t, err)
		assert.Equal(t, len(detections), sum(occupancy))
	}
}

func TestLocateMatchesLinearScan(t *testing.T) {
	shapes := []struct{ width, height, rows, cols int }{
		{10, 10, 3, 3}, {7, 5, 2, 2}, {37, 23, 4, 4}, {2, 2, 3, 3}, {101, 64, 3, 4},
	}

	for _, s := range shapes {
		cells, err := Partition(s.width, s.height, s.rows, s.cols)
		require.NoError(t, err)

		for y := -2; y < s.height+2; y++ {
			for x := -2; x < s.width+2; x++ {
				// Probe pixel centers and exact pixel corners.
				for _, off := range []float64{0, 0.5} {
					px, py := float64(x)+off, float64(y)+off
					occupancy, err := Count([]Detection{box(px, py, 0.25)}, cells)
					require.NoError(t, err)

					idx, err := Locate(px, py, s.width, s.height, s.rows, s.cols)
					require.NoError(t, err)
					require.Equal(t, 1, occupancy[idx], "point (%v,%v) frame %dx%d grid %dx%d", px, py, s.width, s.height, s.rows, s.cols)
				}
			}
		}
	}
}

func TestLocateInvalid(t *testing.T) {
	_, err := Locate(1, 1, 0, 10, 3, 3)
	assert.True(t, errors.Is(err, ErrInvalidDimension))
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
