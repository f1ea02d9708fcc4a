// Package analysis turns the people detected in a single frame into a crowd
// risk assessment: grid occupancy, crowd density index (CDI), risk level and
// the direction of the least crowded cell.
//
// Every function in this package is pure. Nothing is retained between calls,
// so frames from any number of streams can be analyzed concurrently.
package analysis

import (
	"image"

	"github.com/pkg/errors"
)

// Cell is one rectangle of the analysis grid. Bounds are half-open:
// a point belongs to the cell when X1 <= x < X2 and Y1 <= y < Y2.
type Cell struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Contains reports whether the point lies inside the cell.
func (c Cell) Contains(x, y float64) bool {
	return float64(c.X1) <= x && x < float64(c.X2) &&
		float64(c.Y1) <= y && y < float64(c.Y2)
}

// Area returns the cell area in pixels.
func (c Cell) Area() int {
	return (c.X2 - c.X1) * (c.Y2 - c.Y1)
}

// Rect converts the cell to an image.Rectangle with the same half-open bounds.
func (c Cell) Rect() image.Rectangle {
	return image.Rect(c.X1, c.Y1, c.X2, c.Y2)
}

// Partition divides a width x height frame into rows x cols cells in row-major
// order.
//
// Boundaries are floor(c*width/cols) and floor(r*height/rows), computed with
// integer arithmetic so the last column ends exactly at width and the last row
// exactly at height. Cells therefore tile [0,width) x [0,height) without gaps
// or overlaps even when width/cols is not integral.
//
// Arguments:
//   - width, height: frame size in pixels, both > 0.
//   - rows, cols: grid shape, both >= 1.
//
// Returns:
//   - []Cell: rows*cols cells, index = row*cols + col.
//   - error: ErrInvalidDimension when any argument is not positive.
//
// @example
// cells, err := Partition(1000, 1000, 3, 3)
// // cells[0] = {0 0 333 333}, cells[8] = {666 666 1000 1000}
func Partition(width, height, rows, cols int) ([]Cell, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimension, "frame %dx%d", width, height)
	}
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimension, "grid %dx%d", rows, cols)
	}

	cells := make([]Cell, 0, rows*cols)
	for r := 0; r < rows; r++ {
		y1 := r * height / rows
		y2 := (r + 1) * height / rows
		for c := 0; c < cols; c++ {
			cells = append(cells, Cell{
				X1: c * width / cols,
				Y1: y1,
				X2: (c + 1) * width / cols,
				Y2: y2,
			})
		}
	}
	return cells, nil
}
