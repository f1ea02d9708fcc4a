package analysis

import (
	"math"

	"github.com/pkg/errors"
)

// Count assigns every detection to the cell containing its box center and
// returns the per-cell counts, in the same order as cells.
//
// Centers outside the area covered by the cells are clamped onto its edge
// before assignment, so the result always sums to len(detections). Cells are
// searched linearly; grids are small.
func Count(detections []Detection, cells []Cell) ([]int, error) {
	if len(cells) == 0 {
		return nil, errors.Wrap(ErrInvalidDimension, "no cells to count into")
	}

	minX, minY, maxX, maxY := coverage(cells)
	if minX >= maxX || minY >= maxY {
		return nil, errors.Wrapf(ErrInvalidDimension, "cells cover an empty region (%d,%d)-(%d,%d)", minX, minY, maxX, maxY)
	}

	occupancy := make([]int, len(cells))
	for i, d := range detections {
		if err := d.Box.Validate(); err != nil {
			return nil, errors.Wrapf(err, "detection %d", i)
		}

		cx, cy := d.Box.Center()
		cx = clampHalfOpen(cx, float64(minX), float64(maxX))
		cy = clampHalfOpen(cy, float64(minY), float64(maxY))

		idx := -1
		for j, cell := range cells {
			if cell.Contains(cx, cy) {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, errors.Wrapf(ErrInvalidInput, "detection %d center (%.1f,%.1f) is not covered by any cell", i, cx, cy)
		}
		occupancy[idx]++
	}
	return occupancy, nil
}

// Locate returns the row-major index of the cell of a regular rows x cols
// partition of a width x height frame containing (x, y). It is the O(1)
// counterpart of the linear scan in Count and applies the same clamping.
func Locate(x, y float64, width, height, rows, cols int) (int, error) {
	if width <= 0 || height <= 0 || rows <= 0 || cols <= 0 {
		return 0, errors.Wrapf(ErrInvalidDimension, "frame %dx%d grid %dx%d", width, height, rows, cols)
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, errors.Wrap(ErrInvalidInput, "point has NaN coordinate")
	}

	px := int(math.Floor(clampHalfOpen(x, 0, float64(width))))
	py := int(math.Floor(clampHalfOpen(y, 0, float64(height))))

	// Largest c with floor(c*width/cols) <= px.
	col := ((px+1)*cols - 1) / width
	row := ((py+1)*rows - 1) / height
	return row*cols + col, nil
}

// coverage returns the bounding region of all cells.
func coverage(cells []Cell) (minX, minY, maxX, maxY int) {
	minX, minY = cells[0].X1, cells[0].Y1
	maxX, maxY = cells[0].X2, cells[0].Y2
	for _, c := range cells[1:] {
		minX = min(minX, c.X1)
		minY = min(minY, c.Y1)
		maxX = max(maxX, c.X2)
		maxY = max(maxY, c.Y2)
	}
	return minX, minY, maxX, maxY
}

// clampHalfOpen clamps v into [lo, hi).
func clampHalfOpen(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v >= hi {
		return math.Nextafter(hi, math.Inf(-1))
	}
	return v
}
